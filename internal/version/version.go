package version

const Value = "0.4.0"

func ScannerUserAgent() string {
	return "a2ascan/" + Value + " (agent card threat scanner)"
}
