package logging

// ErrorKind normalizes an outcome into a short label shared by logs and
// metrics.
func ErrorKind(status int, hasErr bool) string {
	if hasErr && status == 0 {
		return "network_error"
	}
	switch {
	case status == 401:
		return "unauthorized"
	case status == 403:
		return "forbidden"
	case status == 429:
		return "rate_limited"
	case status >= 500 && status < 600:
		return "server_error"
	case status >= 400 && status < 500:
		return "client_error"
	}
	if hasErr {
		return "error"
	}
	return "ok"
}
