package simbus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rdm-protocol/rdm-go/pkg/persistence"
	"github.com/rdm-protocol/rdm-go/pkg/responder"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

// DeviceSpec describes one simulated responder in a bus file.
type DeviceSpec struct {
	UID                  string `yaml:"uid"`
	BindingUID           string `yaml:"binding_uid"`
	ModelID              uint16 `yaml:"model_id"`
	ProductCategory      uint16 `yaml:"product_category"`
	SoftwareVersionID    uint32 `yaml:"software_version_id"`
	SoftwareVersionLabel string `yaml:"software_version_label"`
	Label                string `yaml:"label"`
	Footprint            uint16 `yaml:"footprint"`
	PersonalityCount     uint8  `yaml:"personality_count"`
	CurrentPersonality   uint8  `yaml:"current_personality"`
	StartAddress         uint16 `yaml:"start_address"`
	SubDeviceCount       uint16 `yaml:"sub_device_count"`
	SensorCount          uint8  `yaml:"sensor_count"`

	// SwappedDiscUID enables the byte-reversed discovery UID defect.
	SwappedDiscUID bool `yaml:"swapped_disc_uid"`
}

// BusSpec is the top-level bus file schema.
type BusSpec struct {
	Devices []DeviceSpec `yaml:"devices"`
}

// Load builds a populated bus from YAML.
func Load(data []byte) (*Bus, error) {
	var spec BusSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("simbus: parse bus file: %w", err)
	}
	if len(spec.Devices) == 0 {
		return nil, fmt.Errorf("simbus: bus file has no devices")
	}

	bus := New()
	for i, ds := range spec.Devices {
		r, opts, err := buildResponder(ds)
		if err != nil {
			return nil, fmt.Errorf("simbus: device %d: %w", i, err)
		}
		bus.Attach(r, opts...)
	}
	return bus, nil
}

// LoadFile builds a populated bus from a YAML file on disk.
func LoadFile(path string) (*Bus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("simbus: read bus file: %w", err)
	}
	return Load(data)
}

func buildResponder(ds DeviceSpec) (*responder.Responder, []Option, error) {
	u, err := uid.Parse(ds.UID)
	if err != nil {
		return nil, nil, err
	}
	cfg := responder.Config{
		UID:                  u,
		ModelID:              ds.ModelID,
		ProductCategory:      ds.ProductCategory,
		SoftwareVersionID:    ds.SoftwareVersionID,
		SoftwareVersionLabel: ds.SoftwareVersionLabel,
		Footprint:            ds.Footprint,
		PersonalityCount:     ds.PersonalityCount,
		CurrentPersonality:   ds.CurrentPersonality,
		StartAddress:         ds.StartAddress,
		SubDeviceCount:       ds.SubDeviceCount,
		SensorCount:          ds.SensorCount,
	}
	if ds.BindingUID != "" {
		if cfg.BindingUID, err = uid.Parse(ds.BindingUID); err != nil {
			return nil, nil, err
		}
	}
	if ds.Label != "" {
		store := &persistence.MemStore{}
		if err := store.Save(uint16(wire.PIDDeviceLabel), ds.Label); err != nil {
			return nil, nil, err
		}
		cfg.Store = store
	}

	r, err := responder.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	var opts []Option
	if ds.SwappedDiscUID {
		opts = append(opts, WithSwappedDiscUID())
	}
	return r, opts, nil
}
