package inventory

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseAnsible reads an ansible style inventory and returns the raw
// server records it describes. Group headers are ignored since every
// host is probed the same way; defaults are applied later by
// Normalize.
func ParseAnsible(r io.Reader) ([]Server, error) {
	var servers []Server
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines, comments, and group headers
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "[") {
			continue
		}

		parsed, err := parseAnsibleLine(line)
		if err != nil {
			return nil, err
		}
		servers = append(servers, parsed...)
	}

	return servers, scanner.Err()
}

// parseAnsibleLine parses a single host line, expanding range patterns
// such as web[1:3], db[a:c], and node[1:10:2].
func parseAnsibleLine(line string) ([]Server, error) {
	parts := strings.SplitN(line, " ", 2)
	pattern := parts[0]

	addresses, err := expandPattern(pattern)
	if err != nil {
		return nil, err
	}

	servers := make([]Server, 0, len(addresses))
	for _, address := range addresses {
		servers = append(servers, Server{Address: address})
	}

	// Apply ansible_* variables to every host in the range
	if len(parts) > 1 {
		for _, v := range strings.Fields(parts[1]) {
			kv := strings.SplitN(v, "=", 2)
			if len(kv) != 2 {
				continue
			}
			key := strings.TrimSpace(kv[0])
			value := strings.Trim(strings.TrimSpace(kv[1]), "'\"")

			for i := range servers {
				switch key {
				case "ansible_host":
					servers[i].Address = value
				case "ansible_user":
					servers[i].Username = value
				case "ansible_password":
					servers[i].Password = value
				case "ansible_port":
					port, err := strconv.Atoi(value)
					if err != nil {
						return nil, fmt.Errorf("invalid ansible_port %q: %v", value, err)
					}
					servers[i].Port = port
				}
			}
		}
	}

	return servers, nil
}

// expandPattern turns a host pattern into concrete addresses. Patterns
// without brackets expand to themselves.
func expandPattern(pattern string) ([]string, error) {
	start := strings.Index(pattern, "[")
	end := strings.Index(pattern, "]")
	if start <= 0 || end <= start {
		return []string{pattern}, nil
	}

	prefix := pattern[:start]
	suffix := pattern[end+1:]
	rangeParts := strings.Split(pattern[start+1:end], ":")
	if len(rangeParts) < 2 || len(rangeParts) > 3 {
		return nil, fmt.Errorf("invalid range pattern %q", pattern)
	}

	increment := 1
	if len(rangeParts) == 3 {
		var err error
		increment, err = strconv.Atoi(rangeParts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid increment: %v", err)
		}
		if increment <= 0 {
			return nil, fmt.Errorf("increment must be positive")
		}
	}

	// Numeric range first, single-letter alphabetic range second
	startNum, startNumErr := strconv.Atoi(rangeParts[0])
	endNum, endNumErr := strconv.Atoi(rangeParts[1])

	var addresses []string
	switch {
	case startNumErr == nil && endNumErr == nil:
		for i := startNum; i <= endNum; i += increment {
			addresses = append(addresses, fmt.Sprintf("%s%d%s", prefix, i, suffix))
		}
	case len(rangeParts[0]) == 1 && len(rangeParts[1]) == 1:
		startChar := rangeParts[0][0]
		endChar := rangeParts[1][0]
		for c := startChar; c <= endChar; c += uint8(increment) {
			addresses = append(addresses, fmt.Sprintf("%s%c%s", prefix, c, suffix))
		}
	default:
		return nil, fmt.Errorf("invalid range format: must be numeric or single letters")
	}

	return addresses, nil
}
