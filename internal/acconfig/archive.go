package acconfig

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/muurk/autoconnect/internal/nvstore"
)

const (
	// Magic identifies a configuration archive.
	Magic = "AC_CONFG"

	// FixedSize is the length of the header and fixed fields.
	FixedSize = 71

	// MaxRecordSize is the largest record the u16 size field can describe.
	MaxRecordSize = nvstore.MagicSize + 0xFFFF

	stringCount = 7
)

// archiveWriter appends little-endian fields to a growing buffer.
type archiveWriter struct {
	buf []byte
}

func (w *archiveWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *archiveWriter) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *archiveWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *archiveWriter) ipv4(a netip.Addr) {
	if !a.IsValid() || !a.Is4() {
		w.buf = append(w.buf, 0, 0, 0, 0)
		return
	}
	b := a.As4()
	w.buf = append(w.buf, b[:]...)
}

func (w *archiveWriter) cstring(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// archiveReader consumes fixed fields from a validated record.
type archiveReader struct {
	buf []byte
	off int
}

func (r *archiveReader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *archiveReader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *archiveReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *archiveReader) ipv4() netip.Addr {
	var b [4]byte
	copy(b[:], r.buf[r.off:r.off+4])
	r.off += 4
	if b == [4]byte{} {
		return netip.Addr{}
	}
	return netip.AddrFrom4(b)
}

func (c *PortalConfig) stringTable() []*string {
	return []*string{&c.APID, &c.PSK, &c.Username, &c.Password, &c.HostName, &c.HomeURI, &c.Title}
}

var stringFields = [stringCount]string{"APID", "PSK", "Username", "Password", "HostName", "HomeURI", "Title"}

// Size returns the encoded length of c.
func (c *PortalConfig) Size() int {
	n := FixedSize
	for _, s := range c.stringTable() {
		n += len(*s) + 1
	}
	return n
}

// Marshal encodes c as an archive record.
func (c *PortalConfig) Marshal() ([]byte, error) {
	for i, s := range c.stringTable() {
		if bytes.IndexByte([]byte(*s), 0) >= 0 {
			return nil, &ConfigError{Field: stringFields[i], Reason: "contains NUL", Err: ErrInvalid}
		}
	}
	total := c.Size()
	if total > MaxRecordSize {
		return nil, &ConfigError{
			Reason: fmt.Sprintf("%d bytes exceed %d-byte record capacity", total, MaxRecordSize),
			Err:    ErrRecordTooLarge,
		}
	}

	w := &archiveWriter{buf: make([]byte, 0, total)}
	w.buf = append(w.buf, Magic...)
	w.u16(uint16(total - nvstore.MagicSize))
	w.u8(uint8(c.Flags))
	w.u8(0)
	w.ipv4(c.APIP)
	w.ipv4(c.Gateway)
	w.ipv4(c.Netmask)
	w.ipv4(c.STAIP)
	w.ipv4(c.STAGateway)
	w.ipv4(c.STANetmask)
	w.ipv4(c.DNS1)
	w.ipv4(c.DNS2)
	w.u32(c.BeginTimeout)
	w.u32(c.PortalTimeout)
	w.u16(c.BoundaryOffset)
	w.u16(uint16(c.MinRSSI))
	w.u16(uint16(c.MenuItems))
	w.u16(uint16(c.Uptime))
	w.u16(c.AuthScope)
	w.u8(uint8(c.Auth))
	w.u8(c.Channel)
	w.u8(c.Hidden)
	w.u8(uint8(c.AutoSave))
	w.u8(uint8(c.BootURI))
	w.u8(uint8(c.Principle))
	w.u8(c.ReconnectInterval)
	w.u8(uint8(c.OTA))
	w.u8(c.TickerPort)
	for _, s := range c.stringTable() {
		w.cstring(*s)
	}
	return w.buf, nil
}

// Unmarshal decodes an archive record into c. On any error c is left
// unchanged.
func (c *PortalConfig) Unmarshal(data []byte) error {
	if len(data) < nvstore.HeaderSize {
		return &ConfigError{Reason: fmt.Sprintf("%d-byte record has no header", len(data)), Err: ErrTruncated}
	}
	if string(data[:nvstore.MagicSize]) != Magic {
		return &ConfigError{Reason: fmt.Sprintf("identifier %q", data[:nvstore.MagicSize]), Err: nvstore.ErrBadMagic}
	}

	total := nvstore.MagicSize + int(binary.LittleEndian.Uint16(data[nvstore.MagicSize:]))
	if total > len(data) {
		return &ConfigError{Reason: fmt.Sprintf("declared %d bytes, have %d", total, len(data)), Err: ErrTruncated}
	}
	if total < FixedSize+stringCount {
		return &ConfigError{Reason: fmt.Sprintf("declared %d bytes, need at least %d", total, FixedSize+stringCount), Err: ErrTruncated}
	}
	rec := data[:total]

	var out PortalConfig
	r := &archiveReader{buf: rec, off: nvstore.HeaderSize}
	out.Flags = Flags(r.u8())
	r.u8()
	out.APIP = r.ipv4()
	out.Gateway = r.ipv4()
	out.Netmask = r.ipv4()
	out.STAIP = r.ipv4()
	out.STAGateway = r.ipv4()
	out.STANetmask = r.ipv4()
	out.DNS1 = r.ipv4()
	out.DNS2 = r.ipv4()
	out.BeginTimeout = r.u32()
	out.PortalTimeout = r.u32()
	out.BoundaryOffset = r.u16()
	out.MinRSSI = int16(r.u16())
	out.MenuItems = MenuItem(r.u16())
	out.Uptime = int16(r.u16())
	out.AuthScope = r.u16()
	out.Auth = AuthMethod(r.u8())
	out.Channel = r.u8()
	out.Hidden = r.u8()
	out.AutoSave = AutoSave(r.u8())
	out.BootURI = BootURI(r.u8())
	out.Principle = Principle(r.u8())
	out.ReconnectInterval = r.u8()
	out.OTA = OTA(r.u8())
	out.TickerPort = r.u8()

	table := rec[FixedSize:]
	for i, s := range out.stringTable() {
		end := bytes.IndexByte(table, 0)
		if end < 0 {
			return &ConfigError{Field: stringFields[i], Reason: "missing terminator", Err: ErrTruncated}
		}
		*s = string(table[:end])
		table = table[end+1:]
	}

	*c = out
	return nil
}
