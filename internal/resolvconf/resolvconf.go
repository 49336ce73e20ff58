package resolvconf

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const SystemPath = "/etc/resolv.conf"

var DefaultPublicResolvers = []string{
	"1.1.1.1",
	"8.8.8.8",
	"9.9.9.9",
}

// Chain returns the configured resolvers when any are given, otherwise the
// system resolvers followed by the public fallbacks. A missing resolv.conf is
// not fatal; the public list is used alone.
func Chain(configured []string) []string {
	if out := unique(configured); len(out) > 0 {
		return out
	}
	system, err := Load(SystemPath)
	if err != nil {
		return unique(DefaultPublicResolvers)
	}
	return unique(append(system, DefaultPublicResolvers...))
}

// Load returns the nameserver addresses listed in a resolv.conf file.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parse(file)
}

func parse(r io.Reader) ([]string, error) {
	var servers []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), "#")
		line, _, _ = strings.Cut(line, ";")
		fields := strings.Fields(line)
		if len(fields) >= 2 && strings.EqualFold(fields[0], "nameserver") {
			servers = append(servers, fields[1])
		}
	}
	return servers, scanner.Err()
}

func unique(resolvers []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, resolver := range resolvers {
		resolver = strings.TrimSpace(resolver)
		if resolver == "" {
			continue
		}
		key := strings.ToLower(resolver)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, resolver)
	}
	return out
}
