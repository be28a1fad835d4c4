package request

import "strings"

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// SanitizeHost drops the port from host when it is the scheme's default.
// IPv6 literals keep their brackets.
func SanitizeHost(scheme, host string) string {
	port := PortOnly(host)
	if port == "" || defaultPorts[strings.ToLower(scheme)] != port {
		return host
	}
	return strings.TrimSuffix(host, ":"+port)
}

// PortOnly returns the port of a host:port string, or "" when there is none.
func PortOnly(hostport string) string {
	i := strings.LastIndexByte(hostport, ':')
	if i == -1 {
		return ""
	}
	if strings.HasPrefix(hostport, "[") {
		if hostport[i-1] != ']' {
			return ""
		}
	} else if strings.Count(hostport, ":") > 1 {
		// Unbracketed IPv6 literal.
		return ""
	}
	return hostport[i+1:]
}
