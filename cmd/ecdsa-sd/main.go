/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main is a command line tool that issues, derives and verifies
// ecdsa-sd-2023 selective disclosure proofs over JSON-LD documents.
package main

import (
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/spf13/cobra"

	"github.com/trustbloc/di-sd-go/cmd/ecdsa-sd/sdcmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use: "ecdsa-sd",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("di-sd-go/cmd")

	rootCmd.AddCommand(sdcmd.Commands()...)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run ecdsa-sd: %s", err)
	}
}
