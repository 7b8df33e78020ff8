/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdprimitives

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trustbloc/di-sd-go/dataintegrity"
)

// PathToken is one step of a JSON pointer: a property name or an array index.
// Key always holds the unescaped token text.
type PathToken struct {
	Key     string
	Index   int
	IsIndex bool
}

// Pointer is a parsed RFC6901 JSON pointer. The empty Pointer denotes the whole document.
type Pointer []PathToken

// ParsePointer parses an RFC6901 JSON pointer. A token made only of digits is an
// array index. Escapes are substituted "~1" first, then "~0", so "~01" reads as "~1".
func ParsePointer(pointer string) (Pointer, error) {
	if pointer == "" {
		return Pointer{}, nil
	}

	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("%w: %q does not start with /", dataintegrity.ErrPointerSyntax, pointer)
	}

	segments := strings.Split(pointer[1:], "/")
	tokens := make(Pointer, 0, len(segments))

	for _, segment := range segments {
		if strings.Contains(segment, "~") {
			if err := checkEscapes(segment); err != nil {
				return nil, fmt.Errorf("%w: %q", err, pointer)
			}

			unescaped := strings.ReplaceAll(strings.ReplaceAll(segment, "~1", "/"), "~0", "~")
			tokens = append(tokens, PathToken{Key: unescaped})

			continue
		}

		if isDigits(segment) {
			if index, err := strconv.Atoi(segment); err == nil {
				tokens = append(tokens, PathToken{Key: segment, Index: index, IsIndex: true})

				continue
			}
		}

		tokens = append(tokens, PathToken{Key: segment})
	}

	return tokens, nil
}

func checkEscapes(segment string) error {
	for i := 0; i < len(segment); i++ {
		if segment[i] != '~' {
			continue
		}

		if i+1 >= len(segment) || (segment[i+1] != '0' && segment[i+1] != '1') {
			return fmt.Errorf("%w: bad escape at %d", dataintegrity.ErrPointerSyntax, i)
		}

		i++
	}

	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// String returns the RFC6901 form of the pointer.
func (p Pointer) String() string {
	var sb strings.Builder

	for _, token := range p {
		sb.WriteByte('/')

		if token.IsIndex {
			if token.Key == "" {
				token.Key = strconv.Itoa(token.Index)
			}

			sb.WriteString(token.Key)

			continue
		}

		sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(token.Key, "~", "~0"), "/", "~1"))
	}

	return sb.String()
}
