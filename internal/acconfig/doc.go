// Package acconfig holds the portal configuration and its binary archive.
//
// The archive is little-endian and laid out as:
//
//	offset size field
//	0      8    magic "AC_CONFG"
//	8      2    size (total length - 8)
//	10     1    flags (see Flags)
//	11     1    reserved
//	12     32   APIP, APGateway, APNetmask, STAIP, STAGateway,
//	            STANetmask, DNS1, DNS2 (IPv4, network byte order)
//	44     4    BeginTimeout (ms)
//	48     4    PortalTimeout (ms)
//	52     2    BoundaryOffset
//	54     2    MinRSSI (signed)
//	56     2    MenuItems
//	58     2    Uptime (signed)
//	60     2    AuthScope
//	62     9    Auth, Channel, Hidden, AutoSave, BootURI, Principle,
//	            ReconnectInterval, OTA, TickerPort
//	71     ...  APID, PSK, Username, Password, HostName, HomeURI, Title,
//	            each NUL-terminated
//
// Unmarshal validates the header before it touches its target and only
// assigns the decoded configuration once the whole record has parsed.
package acconfig
