package provision

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Input is one MAC_ADDRESS,AP_GROUP,AP_NAME row as read, before validation.
type Input struct {
	Line  int    `json:"line,omitempty" yaml:"line,omitempty"`
	MAC   string `json:"mac_address" yaml:"mac_address"`
	Group string `json:"ap_group" yaml:"ap_group"`
	Name  string `json:"ap_name" yaml:"ap_name"`
}

func (in Input) String() string {
	return in.MAC + "," + in.Group + "," + in.Name
}

// delimiters are tried in order; the one seen most often on the first line wins.
var delimiters = []rune{',', ';', '\t'}

func sniffDelimiter(data []byte) rune {
	first := data
	for len(first) > 0 {
		line, rest, _ := bytes.Cut(first, []byte("\n"))
		if len(bytes.TrimSpace(line)) > 0 {
			first = line
			break
		}
		first = rest
	}
	best, bestCount := delimiters[0], 0
	for _, d := range delimiters {
		if n := bytes.Count(first, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ReadInputs parses headerless MAC_ADDRESS,AP_GROUP,AP_NAME rows. The
// delimiter (comma, semicolon or tab) is taken from the first line. Extra
// columns are ignored and blank lines skipped.
func ReadInputs(r io.Reader) ([]Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var inputs []Input
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing input: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(record) < 3 {
			return nil, fmt.Errorf("line %d: expected MAC_ADDRESS,AP_GROUP,AP_NAME, got %d column(s)", line, len(record))
		}
		inputs = append(inputs, Input{
			Line:  line,
			MAC:   strings.TrimSpace(record[0]),
			Group: strings.TrimSpace(record[1]),
			Name:  strings.TrimSpace(record[2]),
		})
	}
	return inputs, nil
}

// OpenInputs reads inputs from path, or from stdin when path is "-".
func OpenInputs(path string, stdin io.Reader) ([]Input, error) {
	if path == "-" {
		return ReadInputs(bufio.NewReader(stdin))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadInputs(f)
}
