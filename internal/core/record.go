package core

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/illarion/pwvault/internal/generator"
)

const recordRule = "--------------------"

const (
	servicePrefix    = "Service: "
	passwordPrefix   = "Password: "
	exclusionsPrefix = "Exclusions: "
	statsFormat      = "Length: %d / Pool Size (N): %d / Entropy: %.2f bits"
	statsScan        = "Length: %d / Pool Size (N): %d / Entropy: %f bits"
)

// Record is one saved password with the parameters it was generated with.
type Record struct {
	Service    string
	Password   string
	Length     int
	PoolSize   int
	Entropy    float64
	Exclusions string
}

// NewRecord describes pw, generated with exclusions, under service.
func NewRecord(service string, pw generator.Password, exclusions string) Record {
	return Record{
		Service:    service,
		Password:   pw.Text,
		Length:     pw.Length(),
		PoolSize:   pw.PoolSize,
		Entropy:    pw.Entropy,
		Exclusions: exclusions,
	}
}

// Validate checks that the record renders to an unambiguous text block.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Service) == "" {
		return fmt.Errorf("%w: empty service label", ErrInvalidRecord)
	}
	if strings.ContainsAny(r.Service, "\r\n") {
		return fmt.Errorf("%w: service label contains a line break", ErrInvalidRecord)
	}
	if r.Password == "" || strings.ContainsAny(r.Password, "\r\n") {
		return fmt.Errorf("%w: password must be a single non-empty line", ErrInvalidRecord)
	}
	return nil
}

// MarshalText renders the record as the block that gets encrypted:
//
//	Service: <label>
//	Password: <password>
//	Length: <L> / Pool Size (N): <N> / Entropy: <E> bits
//	Exclusions: <quoted exclusions>
//	--------------------
func (r Record) MarshalText() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString(servicePrefix + r.Service + "\n")
	b.WriteString(passwordPrefix + r.Password + "\n")
	fmt.Fprintf(&b, statsFormat+"\n", r.Length, r.PoolSize, r.Entropy)
	b.WriteString(exclusionsPrefix + strconv.Quote(r.Exclusions) + "\n")
	b.WriteString(recordRule + "\n")
	return b.Bytes(), nil
}

// UnmarshalText parses a block produced by MarshalText.
func (r *Record) UnmarshalText(text []byte) error {
	lines := strings.Split(strings.TrimSuffix(string(text), "\n"), "\n")
	if len(lines) != 5 || lines[4] != recordRule {
		return fmt.Errorf("%w: malformed record block", ErrCorruptEntry)
	}

	var rec Record
	var ok bool
	if rec.Service, ok = strings.CutPrefix(lines[0], servicePrefix); !ok {
		return fmt.Errorf("%w: missing service line", ErrCorruptEntry)
	}
	if rec.Password, ok = strings.CutPrefix(lines[1], passwordPrefix); !ok {
		return fmt.Errorf("%w: missing password line", ErrCorruptEntry)
	}
	if _, err := fmt.Sscanf(lines[2], statsScan, &rec.Length, &rec.PoolSize, &rec.Entropy); err != nil {
		return fmt.Errorf("%w: bad stats line: %v", ErrCorruptEntry, err)
	}
	quoted, ok := strings.CutPrefix(lines[3], exclusionsPrefix)
	if !ok {
		return fmt.Errorf("%w: missing exclusions line", ErrCorruptEntry)
	}
	exclusions, err := strconv.Unquote(quoted)
	if err != nil {
		return fmt.Errorf("%w: bad exclusions: %v", ErrCorruptEntry, err)
	}
	rec.Exclusions = exclusions

	*r = rec
	return nil
}
