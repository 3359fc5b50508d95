package domain

// ProbeResult reports whether a provider host is reachable from this process.
type ProbeResult struct {
	ModelKey    string   `json:"modelKey"`
	BaseURL     string   `json:"baseUrl"`
	Host        string   `json:"host,omitempty"`
	Port        int      `json:"port,omitempty"`
	DNSResolved bool     `json:"dnsResolved"`
	IPs         []string `json:"ips,omitempty"`
	TCPConnect  bool     `json:"tcpConnect"`
	TCPError    string   `json:"tcpError,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Failed reports whether the probe could not get as far as a TCP attempt.
func (p ProbeResult) Failed() bool {
	return p.Error != ""
}
