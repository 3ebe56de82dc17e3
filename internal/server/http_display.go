package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayTLSInfo()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows the API surface grouped by area
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health, /stats                     - Health and statistics")
	fmt.Println("  *    /resumes[/{id}[/primary|reanalyze]] - Resumes (requires X-User-ID)")
	fmt.Println("  *    /resumes/{id}/tailor[ed], /tailored - Tailored resumes")
	fmt.Println("  GET  /jobs/search, /jobs/matches, /jobs/{id}")
	fmt.Println("  *    /interviews[/{id}[/start|complete|cancel]]")
	fmt.Println("  *    /me, /transactions[/{ref}/complete|fail]")
	fmt.Println("  *    /announcements, /recruiter-applications[/{id}/review]")
}

// displayTLSInfo shows the transport security mode
func (s *Server) displayTLSInfo() {
	addr := s.Host + ":" + s.Port
	switch s.TLSConfig.Mode {
	case "server":
		fmt.Printf("Listening on https://%s (server-only TLS)\n", addr)
	case "mutual":
		fmt.Printf("Listening on https://%s (mutual TLS, client policy: %s)\n", addr, s.TLSConfig.ClientAuthPolicy)
	default:
		fmt.Printf("Listening on http://%s (TLS disabled)\n", addr)
	}
	if s.certs != nil {
		fmt.Println("TLS auto-reload: ENABLED (watching certificate files)")
	}
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if !s.RateLimit.Enabled {
		fmt.Println("Rate limiting: DISABLED")
		return
	}
	fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
		s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	if s.RateLimit.ByUser {
		fmt.Println("  - Per user rate limiting enabled")
	}
	if s.RateLimit.ByAPIKey {
		fmt.Println("  - Per API key rate limiting enabled")
	}
	if s.RateLimit.ByIP {
		fmt.Println("  - Per IP address rate limiting enabled")
	}
}
