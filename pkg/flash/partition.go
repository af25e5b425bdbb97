package flash

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ESP-IDF partition table layout
const (
	PartitionTableOffset  = 0x8000
	PartitionTableMaxSize = 0xC00
	partitionEntrySize    = 32
)

type PartitionType uint8
type PartitionSubtype uint8

const (
	PartitionTypeApp  PartitionType = 0x00
	PartitionTypeData PartitionType = 0x01
)

const (
	SubtypeDataOTA       PartitionSubtype = 0x00
	SubtypeDataPhy       PartitionSubtype = 0x01
	SubtypeDataNVS       PartitionSubtype = 0x02
	SubtypeDataCoreDump  PartitionSubtype = 0x03
	SubtypeDataUndefined PartitionSubtype = 0x06
	SubtypeDataSPIFFS    PartitionSubtype = 0x82

	// SubtypeAny matches every subtype in FindPartition
	SubtypeAny PartitionSubtype = 0xFF
)

// The partition that holds models
const ModelsPartitionLabel = "models"

var ErrInvalidPartitionTable = errors.New("Invalid partition table")

// Partition is one entry of the partition table
type Partition struct {
	Type    PartitionType
	Subtype PartitionSubtype
	Offset  uint32
	Size    uint32
	Label   string
	Flags   uint32
}

func (p Partition) String() string {
	return fmt.Sprintf("%v type %v/%v at 0x%x, %v bytes", p.Label, p.Type, p.Subtype, p.Offset, p.Size)
}

// ParsePartitionTable decodes a raw partition table.
// Parsing stops at the first erased entry. The MD5 entry is skipped.
func ParsePartitionTable(table []byte) ([]Partition, error) {
	parts := []Partition{}
	for i := 0; i+partitionEntrySize <= len(table); i += partitionEntrySize {
		e := table[i : i+partitionEntrySize]
		switch {
		case e[0] == 0xFF && e[1] == 0xFF:
			return parts, nil
		case e[0] == 0xEB && e[1] == 0xEB:
			continue
		case e[0] != 0xAA || e[1] != 0x50:
			return nil, fmt.Errorf("%w: bad magic %02x%02x in entry %v", ErrInvalidPartitionTable, e[0], e[1], i/partitionEntrySize)
		}
		label := e[12:28]
		if n := bytes.IndexByte(label, 0); n >= 0 {
			label = label[:n]
		}
		parts = append(parts, Partition{
			Type:    PartitionType(e[2]),
			Subtype: PartitionSubtype(e[3]),
			Offset:  binary.LittleEndian.Uint32(e[4:]),
			Size:    binary.LittleEndian.Uint32(e[8:]),
			Label:   string(label),
			Flags:   binary.LittleEndian.Uint32(e[28:]),
		})
	}
	return parts, nil
}

// FindPartition returns the first partition that matches.
// An empty label matches any label.
func FindPartition(parts []Partition, typ PartitionType, subtype PartitionSubtype, label string) (*Partition, error) {
	for i := range parts {
		p := &parts[i]
		if p.Type != typ {
			continue
		}
		if subtype != SubtypeAny && p.Subtype != subtype {
			continue
		}
		if label != "" && p.Label != label {
			continue
		}
		return p, nil
	}
	return nil, ErrPartitionNotFound
}

// EncodePartition is the inverse of ParsePartitionTable, for a single entry
func EncodePartition(p Partition) []byte {
	e := make([]byte, partitionEntrySize)
	e[0] = 0xAA
	e[1] = 0x50
	e[2] = byte(p.Type)
	e[3] = byte(p.Subtype)
	binary.LittleEndian.PutUint32(e[4:], p.Offset)
	binary.LittleEndian.PutUint32(e[8:], p.Size)
	copy(e[12:28], p.Label)
	binary.LittleEndian.PutUint32(e[28:], p.Flags)
	return e
}
