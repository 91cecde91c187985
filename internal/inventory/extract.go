package inventory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/CZERTAINLY/azsnap/internal/model"
)

// Lookup returns the inventory line of every host, in the order of hosts, and the
// hosts which are not in the inventory. Hosts are compared with the vm name
// case-insensitively, the first matching line wins.
func Lookup(hosts []string, items []model.WorkItem) (lines []string, missing []string) {
	for _, host := range hosts {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		found := false
		for _, item := range items {
			if strings.EqualFold(item.ItemID, host) {
				lines = append(lines, item.RawLine)
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, host)
		}
	}
	return lines, missing
}

// ReadLines reads the non-empty lines of path.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, model.ErrInventoryMissing)
	} else if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var ret []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ret = append(ret, line)
		}
	}
	return ret, scanner.Err()
}

// AppendLines appends lines to path, creating it when needed. It reports whether
// the file existed before.
func AppendLines(path string, lines []string) (appended bool, err error) {
	_, statErr := os.Stat(path)
	appended = statErr == nil

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return appended, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err = io.WriteString(w, line+"\n"); err != nil {
			return appended, err
		}
	}
	return appended, w.Flush()
}
