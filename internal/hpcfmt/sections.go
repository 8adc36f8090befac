package hpcfmt

import (
	"bytes"
	"fmt"

	"github.com/hpcprof/cct/internal/metric"
)

const (
	Magic   = "HPCRUN-profile____"
	Version = "02.00"
	// EndianLittle is the endianness byte of files written by this package.
	EndianLittle = 'l'

	EpochTag = "EPOCH___"

	// Section names used in read errors.
	SectionHeader      = "header"
	SectionEpochHeader = "epoch header"
	SectionMetricTable = "metric table"
	SectionLoadmap     = "loadmap"
	SectionCCT         = "cct"
)

// EpochFlags is the flag word of an epoch header.
type EpochFlags uint64

const FlagLogicalUnwind EpochFlags = 1 << 0

func (f EpochFlags) IsLogicalUnwind() bool {
	return f&FlagLogicalUnwind != 0
}

type (
	// NameValue is one entry of a header's name/value list.
	NameValue struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}

	Header struct {
		Version string      `json:"version"`
		Values  []NameValue `json:"values,omitempty"`
	}

	EpochHeader struct {
		Flags                  EpochFlags  `json:"flags"`
		MeasurementGranularity uint64      `json:"measurement_granularity"`
		RAToCallsiteOffset     uint32      `json:"ra_to_callsite_offset"`
		Values                 []NameValue `json:"values,omitempty"`
	}

	// LoadModule is one entry of an epoch's load map.
	LoadModule struct {
		ID    uint16 `json:"id"`
		Name  string `json:"name"`
		Flags uint64 `json:"flags,omitempty"`
	}
)

// Lookup returns the value of the first pair called name.
func (h Header) Lookup(name string) (string, bool) {
	for _, nv := range h.Values {
		if nv.Name == name {
			return nv.Value, true
		}
	}
	return "", false
}

func writeValues(e *Encoder, values []NameValue) {
	e.Uint32(uint32(len(values)))
	for _, nv := range values {
		e.Text(nv.Name)
		e.Text(nv.Value)
	}
}

func readValues(d *Decoder) []NameValue {
	n := d.Uint32()
	var values []NameValue
	for i := uint32(0); i < n && d.Err() == nil; i++ {
		name := d.Text()
		value := d.Text()
		values = append(values, NameValue{Name: name, Value: value})
	}
	return values
}

func WriteHeader(e *Encoder, h Header) error {
	e.Bytes([]byte(Magic))
	version := h.Version
	if version == "" {
		version = Version
	}
	e.Bytes([]byte(fmt.Sprintf("%-5.5s", version)))
	e.Uint8(EndianLittle)
	writeValues(e, h.Values)
	return e.Err()
}

func ReadHeader(d *Decoder) (Header, error) {
	var h Header
	magic := d.Bytes(len(Magic))
	if d.Err() == nil && !bytes.Equal(magic, []byte(Magic)) {
		d.Fail(fmt.Errorf("%w: %q", ErrBadMagic, magic))
	}
	h.Version = string(bytes.TrimRight(d.Bytes(len(Version)), " "))
	if endian := d.Uint8(); d.Err() == nil && endian != EndianLittle {
		d.Fail(fmt.Errorf("hpcfmt: unsupported endianness %q", endian))
	}
	h.Values = readValues(d)
	return h, sectionErr(SectionHeader, d.Err())
}

func WriteEpochHeader(e *Encoder, h EpochHeader) error {
	e.Bytes([]byte(EpochTag))
	e.Uint64(uint64(h.Flags))
	e.Uint64(h.MeasurementGranularity)
	e.Uint32(h.RAToCallsiteOffset)
	writeValues(e, h.Values)
	return e.Err()
}

func ReadEpochHeader(d *Decoder) (EpochHeader, error) {
	var h EpochHeader
	tag := d.Bytes(len(EpochTag))
	if d.Err() == nil && !bytes.Equal(tag, []byte(EpochTag)) {
		d.Fail(fmt.Errorf("%w: %q", ErrBadTag, tag))
	}
	h.Flags = EpochFlags(d.Uint64())
	h.MeasurementGranularity = d.Uint64()
	h.RAToCallsiteOffset = d.Uint32()
	h.Values = readValues(d)
	return h, sectionErr(SectionEpochHeader, d.Err())
}

func WriteMetricTable(e *Encoder, descs []metric.Descriptor) error {
	e.Uint32(uint32(len(descs)))
	for _, m := range descs {
		e.Text(m.Name)
		e.Text(m.Description)
		e.Uint8(uint8(m.Kind))
		e.Uint64(m.Period)
		e.Uint64(m.Flags)
	}
	return e.Err()
}

func ReadMetricTable(d *Decoder) ([]metric.Descriptor, error) {
	n := d.Uint32()
	var descs []metric.Descriptor
	for i := uint32(0); i < n && d.Err() == nil; i++ {
		var m metric.Descriptor
		m.Name = d.Text()
		m.Description = d.Text()
		m.Kind = metric.Kind(d.Uint8())
		m.Period = d.Uint64()
		m.Flags = d.Uint64()
		descs = append(descs, m)
	}
	return descs, sectionErr(SectionMetricTable, d.Err())
}

func WriteLoadmap(e *Encoder, modules []LoadModule) error {
	e.Uint32(uint32(len(modules)))
	for _, lm := range modules {
		e.Uint16(lm.ID)
		e.Text(lm.Name)
		e.Uint64(lm.Flags)
	}
	return e.Err()
}

func ReadLoadmap(d *Decoder) ([]LoadModule, error) {
	n := d.Uint32()
	var modules []LoadModule
	for i := uint32(0); i < n && d.Err() == nil; i++ {
		var lm LoadModule
		lm.ID = d.Uint16()
		lm.Name = d.Text()
		lm.Flags = d.Uint64()
		modules = append(modules, lm)
	}
	return modules, sectionErr(SectionLoadmap, d.Err())
}
