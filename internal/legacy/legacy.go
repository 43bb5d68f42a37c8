// Package legacy reads the flat-file ledger kept by the first version of the
// tracker: one "description - $amount" entry per line.
package legacy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"expense-ledger/internal/services"

	"github.com/shopspring/decimal"
)

const separator = " - "

// Entry is one parsed line.
type Entry struct {
	Line        int
	Description string
	Amount      decimal.Decimal
}

// LineError reports a line that could not be parsed.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error { return e.Err }

var errNoSeparator = errors.New(`expected "description - amount"`)

// Parse reads every entry from r. Blank lines are skipped. Malformed lines do
// not stop parsing; they are returned joined in the error alongside the
// entries that did parse.
func Parse(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		errs    []error
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		entry, err := parseLine(text)
		if err != nil {
			errs = append(errs, &LineError{Line: lineNo, Text: strings.TrimSpace(text), Err: err})
			continue
		}
		entry.Line = lineNo
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read ledger: %w", err)
	}
	return entries, errors.Join(errs...)
}

func parseLine(text string) (Entry, error) {
	i := strings.LastIndex(text, separator)
	if i < 0 {
		return Entry{}, errNoSeparator
	}

	description := strings.TrimSpace(text[:i])
	if description == "" {
		return Entry{}, services.ErrEmptyDescription
	}
	amount, err := services.ParseAmount(text[i+len(separator):])
	if err != nil {
		return Entry{}, err
	}
	return Entry{Description: description, Amount: amount}, nil
}
