package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parsePorts turns a comma-separated flag value into a port rotation list.
// An empty value keeps the built-in default rotation.
func parsePorts(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	ports := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		port, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", part, err)
		}
		if port <= 0 || port > 65535 {
			return nil, fmt.Errorf("port out of range: %d", port)
		}
		ports = append(ports, port)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no ports in %q", value)
	}
	return ports, nil
}
