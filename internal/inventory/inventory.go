// Package inventory parses the flat-file inventories and groups work items by
// subscription.
//
// A VM inventory line is `<resourceId> <vmName>`, a snapshot ledger line is a
// single `<resourceId>`. The subscription is the third `/` separated segment of
// the resource id: /subscriptions/<subscription>/resourceGroups/...
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

// Header is the first line of an inventory written by the inventory command.
const Header = "Subscription ID,VM Name/Hostname"

const scopeSegment = 2

// ScopeOf returns the subscription id of an azure resource id.
func ScopeOf(resourceID string) (string, error) {
	parts := strings.Split(resourceID, "/")
	if len(parts) <= scopeSegment || parts[scopeSegment] == "" {
		return "", fmt.Errorf("resource id %q has no subscription segment: %w", resourceID, model.ErrMalformedLine)
	}
	return parts[scopeSegment], nil
}

// Parse reads a VM inventory. Blank lines, comments (#) and the Header are skipped.
func Parse(r io.Reader) ([]model.WorkItem, error) {
	return parse(r, func(fields []string) (string, string, error) {
		if len(fields) != 2 {
			return "", "", fmt.Errorf("expected `<resourceId> <name>`, got %d fields", len(fields))
		}
		return fields[0], fields[1], nil
	})
}

// ParseLedger reads a list of snapshot resource ids, one per line. The item id is
// the last segment of the resource id.
func ParseLedger(r io.Reader) ([]model.WorkItem, error) {
	return parse(r, func(fields []string) (string, string, error) {
		if len(fields) != 1 {
			return "", "", fmt.Errorf("expected `<resourceId>`, got %d fields", len(fields))
		}
		id := strings.TrimRight(fields[0], "/")
		return fields[0], id[strings.LastIndexByte(id, '/')+1:], nil
	})
}

type lineFunc func(fields []string) (resourceID, itemID string, err error)

func parse(r io.Reader, fn lineFunc) ([]model.WorkItem, error) {
	var ret []model.WorkItem
	scanner := bufio.NewScanner(r)
	var lineNo int
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == Header || strings.HasPrefix(line, "#") {
			continue
		}
		resourceID, itemID, err := fn(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", lineNo, err.Error(), model.ErrMalformedLine)
		}
		scope, err := ScopeOf(resourceID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		ret = append(ret, model.WorkItem{
			ScopeID:    scope,
			ItemID:     itemID,
			ResourceID: resourceID,
			RawLine:    line,
			Line:       lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	return ret, nil
}

// ReadFile opens path and parses it with parse (Parse or ParseLedger). A missing
// file or a file without items is reported as ErrInventoryMissing or ErrInventoryEmpty.
func ReadFile(path string, parse func(io.Reader) ([]model.WorkItem, error)) ([]model.WorkItem, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, model.ErrInventoryMissing)
	} else if err != nil {
		return nil, fmt.Errorf("opening inventory: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	items, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", path, model.ErrInventoryEmpty)
	}
	return items, nil
}
