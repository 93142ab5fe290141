package devices

import (
	"fmt"
	"strings"
)

// Type is the inferred or declared kind of a network device.
type Type string

const (
	TypeCamera        Type = "camera"
	TypeDVR           Type = "dvr"
	TypeRouter        Type = "router"
	TypeSwitch        Type = "switch"
	TypeAccessPoint   Type = "access_point"
	TypeIntercom      Type = "intercom"
	TypeAccessControl Type = "access_control"
	TypePrinter       Type = "printer"
	TypeComputer      Type = "computer"
	TypePhone         Type = "phone"
	TypeUnknown       Type = "unknown"
)

var types = []Type{
	TypeCamera, TypeDVR, TypeRouter, TypeSwitch, TypeAccessPoint, TypeIntercom,
	TypeAccessControl, TypePrinter, TypeComputer, TypePhone, TypeUnknown,
}

// ParseType normalises s; the empty string maps to TypeUnknown.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return TypeUnknown, true
	}
	for _, known := range types {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Hostname keywords, checked in order. More specific entries come first.
var hostnameRules = []struct {
	keywords []string
	typ      Type
}{
	{[]string{"nvr", "dvr", "xvr"}, TypeDVR},
	{[]string{"cam", "ipc", "dome", "bullet"}, TypeCamera},
	{[]string{"access-point", "accesspoint", "ap-", "unifi", "wap", "wifi"}, TypeAccessPoint},
	{[]string{"interfone", "intercom", "doorbell", "porteiro"}, TypeIntercom},
	{[]string{"controladora", "acesso", "access", "catraca", "biometr", "facial", "leitor"}, TypeAccessControl},
	{[]string{"switch", "sw-"}, TypeSwitch},
	{[]string{"router", "gateway", "gw-", "mikrotik", "roteador"}, TypeRouter},
	{[]string{"printer", "impressora"}, TypePrinter},
	{[]string{"iphone", "android", "galaxy", "phone", "celular"}, TypePhone},
	{[]string{"desktop", "laptop", "notebook", "pc-", "-pc", "workstation", "macbook"}, TypeComputer},
}

type ouiInfo struct {
	vendor string
	typ    Type
}

// Vendor prefixes (first three MAC octets) common in condominium networks.
var ouiTable = map[string]ouiInfo{
	"44:19:B6": {"Hikvision", TypeCamera},
	"C0:56:E3": {"Hikvision", TypeCamera},
	"28:57:BE": {"Hikvision", TypeCamera},
	"BC:AD:28": {"Hikvision", TypeCamera},
	"3C:EF:8C": {"Dahua", TypeCamera},
	"90:02:A9": {"Dahua", TypeCamera},
	"E0:50:8B": {"Dahua", TypeDVR},
	"00:1A:3F": {"Intelbras", TypeDVR},
	"24:A4:3C": {"Ubiquiti", TypeAccessPoint},
	"80:2A:A8": {"Ubiquiti", TypeAccessPoint},
	"FC:EC:DA": {"Ubiquiti", TypeAccessPoint},
	"4C:5E:0C": {"MikroTik", TypeRouter},
	"CC:2D:E0": {"MikroTik", TypeRouter},
	"50:C7:BF": {"TP-Link", TypeRouter},
	"00:1B:54": {"Cisco", TypeSwitch},
	"00:0B:82": {"Grandstream", TypeIntercom},
	"0C:38:3E": {"Fanvil", TypeIntercom},
	"00:17:61": {"ZKTeco", TypeAccessControl},
	"3C:D9:2B": {"HP", TypePrinter},
	"00:26:AB": {"Seiko Epson", TypePrinter},
	"F0:18:98": {"Apple", TypePhone},
	"00:E0:4C": {"Realtek", TypeComputer},
}

// InferType guesses the device type from hostname keywords and then from the
// MAC vendor prefix. The vendor is returned when the prefix is known.
func InferType(hostname, mac string) (Type, string) {
	var vendor string
	ouiType := TypeUnknown
	if len(mac) >= 8 {
		if info, ok := ouiTable[strings.ToUpper(mac[:8])]; ok {
			vendor, ouiType = info.vendor, info.typ
		}
	}
	h := strings.ToLower(hostname)
	if h != "" {
		for _, rule := range hostnameRules {
			for _, kw := range rule.keywords {
				if strings.Contains(h, kw) {
					return rule.typ, vendor
				}
			}
		}
	}
	return ouiType, vendor
}

// NormalizeMAC accepts colon, dash, dot or bare hex notation and returns
// the upper-case colon form.
func NormalizeMAC(raw string) (string, error) {
	hex := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if len(hex) != 12 {
		return "", fmt.Errorf("%w: invalid mac %q", ErrInvalidInput, raw)
	}
	hex = strings.ToUpper(hex)
	var b strings.Builder
	for i := 0; i < 12; i += 2 {
		c0, c1 := hex[i], hex[i+1]
		if !isHex(c0) || !isHex(c1) {
			return "", fmt.Errorf("%w: invalid mac %q", ErrInvalidInput, raw)
		}
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteByte(c0)
		b.WriteByte(c1)
	}
	return b.String(), nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}
