package netbox

import (
	"context"
	"fmt"
	"os"

	"github.com/bcnelson/oxidized-inventory-sync/internal/inventory"
)

// FileShim is a testing Source that reads a NetBox device list from a file.
// The file holds either a NetBox list response or a bare array of devices.
type FileShim struct {
	filePath string
}

// Ensure FileShim implements Source.
var _ Source = (*FileShim)(nil)

// NewFileShim creates a new file-based source.
func NewFileShim(filePath string) *FileShim {
	return &FileShim{filePath: filePath}
}

// Name identifies the source in status output.
func (f *FileShim) Name() string {
	return "file:" + f.filePath
}

// FetchDevices reads and decodes the file on every call.
func (f *FileShim) FetchDevices(ctx context.Context) ([]inventory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, fmt.Errorf("reading device file: %w", err)
	}
	list, err := decodeDeviceList(data)
	if err != nil {
		return nil, err
	}
	return records(list.Results), nil
}
