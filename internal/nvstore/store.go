package nvstore

import (
	"encoding/binary"
	"fmt"
)

// Framed record layout: magic then a u16 holding total length minus 8.
const (
	MagicSize  = 8
	HeaderSize = MagicSize + 2
)

// Selector addresses a record. Offset-addressed stores use Offset and
// Length, key-addressed stores use Key. Length is the exact number of
// bytes a load transaction reads; zero on a key-addressed load means the
// whole value.
type Selector struct {
	Offset int
	Key    string
	Length int
}

func (s Selector) String() string {
	if s.Key != "" {
		return fmt.Sprintf("key=%s@%d+%d", s.Key, s.Offset, s.Length)
	}
	return fmt.Sprintf("@%d+%d", s.Offset, s.Length)
}

// Store is a persistent byte store.
type Store interface {
	// Name identifies the back-end in logs and errors.
	Name() string

	// Load reads the record addressed by sel.
	Load(sel Selector) ([]byte, error)

	// Save writes data at sel. Offset-addressed stores write exactly
	// len(data) bytes.
	Save(sel Selector, data []byte) error

	// Close releases the back-end.
	Close() error
}

// Frame prepends the record header to payload.
func Frame(magic string, payload []byte) ([]byte, error) {
	if len(magic) != MagicSize {
		return nil, fmt.Errorf("magic %q must be %d bytes", magic, MagicSize)
	}
	size := 2 + len(payload)
	if size > 0xFFFF {
		return nil, fmt.Errorf("record of %d bytes exceeds 16-bit size field", size+MagicSize)
	}
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, magic...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(size))
	return append(buf, payload...), nil
}

// ParseHeader validates a record header and returns the total record
// length it declares.
func ParseHeader(magic string, hdr []byte) (int, error) {
	if len(hdr) < HeaderSize {
		return 0, fmt.Errorf("header of %d bytes: %w", len(hdr), ErrOutOfRange)
	}
	if string(hdr[:MagicSize]) != magic {
		return 0, ErrBadMagic
	}
	size := int(binary.LittleEndian.Uint16(hdr[MagicSize:HeaderSize]))
	if size < 2 {
		return 0, ErrBadMagic
	}
	return MagicSize + size, nil
}

// LoadFramed reads a framed record in two phases: the header first, then
// exactly the size it declares. The returned slice includes the header.
func LoadFramed(s Store, sel Selector, magic string) ([]byte, error) {
	hsel := sel
	hsel.Length = HeaderSize
	hdr, err := s.Load(hsel)
	if err != nil {
		return nil, err
	}

	total, err := ParseHeader(magic, hdr)
	if err != nil {
		return nil, &StorageError{Op: "load", Backend: s.Name(), Selector: hsel, Err: err}
	}

	rsel := sel
	rsel.Length = total
	rec, err := s.Load(rsel)
	if err != nil {
		return nil, err
	}
	if len(rec) != total {
		return nil, &StorageError{Op: "load", Backend: s.Name(), Selector: rsel,
			Err: fmt.Errorf("short record of %d bytes: %w", len(rec), ErrOutOfRange)}
	}
	return rec, nil
}

// Payload strips the header from a framed record.
func Payload(rec []byte) []byte {
	if len(rec) < HeaderSize {
		return nil
	}
	return rec[HeaderSize:]
}
