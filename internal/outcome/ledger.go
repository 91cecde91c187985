package outcome

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CZERTAINLY/azsnap/internal/model"
)

var ErrLedgerClosed = errors.New("ledger is closed")

// Ledger is an append-only file of produced identifiers, one per line. Every
// append is synced to disk before it returns so a crash keeps confirmed results.
type Ledger struct {
	mx   sync.Mutex
	path string
	f    *os.File
}

func OpenLedger(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	return &Ledger{path: path, f: f}, nil
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) Append(id string) error {
	if strings.ContainsAny(id, "\r\n") {
		return fmt.Errorf("ledger id %q contains a line break", id)
	}
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.f == nil {
		return ErrLedgerClosed
	}
	if _, err := l.f.WriteString(id + "\n"); err != nil {
		return err
	}
	return l.f.Sync()
}

func (l *Ledger) Close() error {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// ReadLedger returns the identifiers stored in the ledger at path.
func ReadLedger(path string) ([]string, error) {
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
