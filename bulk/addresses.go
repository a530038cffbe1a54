package bulk

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/s0up4200/octolist/octopus"
)

// LineError reports an address file line that could not be used
type LineError struct {
	Line  int
	Value string
	Err   error
}

// Error implements the error interface
func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}

// ReadAddresses parses one address per line. Blank lines and lines starting
// with # are ignored, invalid addresses are reported and skipped, and
// repeated addresses (compared case-insensitively) are kept once.
func ReadAddresses(r io.Reader) ([]octopus.EmailAddress, []LineError, error) {
	var (
		emails  []octopus.EmailAddress
		invalid []LineError
		seen    = make(map[string]struct{})
	)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		email, err := octopus.ParseEmailAddress(text)
		if err != nil {
			invalid = append(invalid, LineError{Line: line, Value: text, Err: err})
			continue
		}

		key := strings.ToLower(email.String())
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		emails = append(emails, email)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read addresses: %w", err)
	}

	return emails, invalid, nil
}
