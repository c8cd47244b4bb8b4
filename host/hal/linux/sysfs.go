package linux

import (
	"os"
	"sort"
	"strings"
)

// scanCards returns the mmc card devices under root, optionally limited to
// the given host. A missing root means no mmc host is registered.
func scanCards(root, host string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cards []string
	for _, entry := range entries {
		name := entry.Name()

		// Card devices are named "<host>:<rca>", e.g. "mmc0:aaaa".
		h := hostOf(name)
		if h == "" || !strings.HasPrefix(h, "mmc") {
			continue
		}
		if host != "" && h != host {
			continue
		}
		cards = append(cards, name)
	}
	sort.Strings(cards)
	return cards, nil
}
