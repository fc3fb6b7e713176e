// Package storage provides unit tests for file storage operations.
package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name:    "valid path",
			path:    filepath.Join(tmpDir, "kv.db"),
			wantErr: false,
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := NewFile(tt.path, 4096, 5*time.Second)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFile() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && file == nil {
				t.Error("NewFile() returned nil file without error")
			}
			if file != nil {
				file.Close()
			}
		})
	}
}

func TestFile_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	file, err := NewFile(path, 4096, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	defer file.Close()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "small data", data: []byte("test data")},
		{name: "empty data", data: []byte{}},
		{name: "large data", data: make([]byte, 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := file.Append(tt.data); err != nil {
				t.Errorf("File.Append() error = %v", err)
			}
		})
	}
}

func TestFile_ReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	file, err := NewFile(path, 4096, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	defer file.Close()

	testData := []byte("test data for reading")
	offset, err := file.Append(testData)
	if err != nil {
		t.Fatalf("Failed to append data: %v", err)
	}
	if err := file.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	tests := []struct {
		name   string
		offset int64
		size   uint32
	}{
		{name: "read valid data", offset: offset, size: uint32(len(testData))},
		{name: "read beyond file", offset: 10000, size: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := file.ReadAt(tt.offset, tt.size)
			if err != nil {
				t.Errorf("File.ReadAt() error = %v", err)
				return
			}
			if len(data) != int(tt.size) {
				t.Errorf("File.ReadAt() returned data of length %d, want %d", len(data), tt.size)
			}
		})
	}
}

func TestFile_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	file, err := NewFile(path, 4096, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if _, err := file.Append([]byte("test")); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Errorf("File.Close() error = %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file missing after File.Close()")
	}
}

func TestFile_Flush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	file, err := NewFile(path, 4096, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	defer file.Close()

	if _, err := file.Append([]byte("test data")); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := file.Flush(); err != nil {
		t.Errorf("File.Flush() error = %v", err)
	}
}
