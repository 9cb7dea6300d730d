// Package inspect builds a readable report of a connected device's GATT
// database: services, characteristics with their capability flags, and
// descriptors with their current values.
package inspect

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/bleio"
)

// DescriptorReport is one descriptor entry: resolved name and value.
type DescriptorReport struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"` // hex
	Error string `json:"error,omitempty"`
}

// CharacteristicReport is one characteristic entry.
type CharacteristicReport struct {
	UUID        string             `json:"uuid"`
	Name        string             `json:"name,omitempty"`
	Properties  string             `json:"properties"`
	Descriptors []DescriptorReport `json:"descriptors,omitempty"`
}

// ServiceReport is one service entry; characteristics keep discovery order.
type ServiceReport struct {
	UUID            string                                                 `json:"uuid"`
	Name            string                                                 `json:"name,omitempty"`
	Characteristics *orderedmap.OrderedMap[string, *CharacteristicReport] `json:"characteristics"`
}

// Report is the full GATT tree of one device, services in discovery order.
type Report struct {
	Address  string                                          `json:"address"`
	Name     string                                          `json:"name,omitempty"`
	Services *orderedmap.OrderedMap[string, *ServiceReport] `json:"services"`
}

// Collect walks the device's GATT database and reads every descriptor value.
// Enumeration failures abort the report; per-descriptor read failures are
// recorded in place so one broken descriptor does not hide the rest.
func Collect(dev *bleio.Device) (*Report, error) {
	report := &Report{
		Address:  dev.Address().String(),
		Name:     dev.Name(),
		Services: orderedmap.New[string, *ServiceReport](),
	}

	svcs, err := dev.Services()
	if err != nil {
		return nil, err
	}

	for _, svc := range svcs {
		sr := &ServiceReport{
			UUID:            svc.UUID(),
			Name:            svc.KnownName(),
			Characteristics: orderedmap.New[string, *CharacteristicReport](),
		}
		report.Services.Set(sr.UUID, sr)

		chars, err := svc.Characteristics()
		if err != nil {
			return nil, err
		}

		for _, char := range chars {
			cr := &CharacteristicReport{
				UUID: char.UUID(),
				Name: char.KnownName(),
			}
			if props, ok := char.Properties(); ok {
				cr.Properties = props.String()
			} else {
				cr.Properties = "unknown"
			}
			sr.Characteristics.Set(cr.UUID, cr)

			descs, err := char.Descriptors()
			if err != nil {
				return nil, err
			}

			for _, desc := range descs {
				dr := DescriptorReport{
					UUID: desc.UUID(),
					Name: desc.KnownName(),
				}
				if value, err := desc.Read(); err != nil {
					dr.Error = err.Error()
				} else {
					dr.Value = hex.EncodeToString(value)
				}
				cr.Descriptors = append(cr.Descriptors, dr)
			}
		}
	}

	return report, nil
}

// Render writes the report as an indented tree. With colored set, UUIDs and
// names get terminal colors.
func (r *Report) Render(w io.Writer, colored bool) {
	uuidColor := color.New(color.FgCyan)
	nameColor := color.New(color.FgGreen)
	if colored {
		uuidColor.EnableColor()
		nameColor.EnableColor()
	} else {
		uuidColor.DisableColor()
		nameColor.DisableColor()
	}

	label := func(uuid, name string) string {
		if name == "" {
			return uuidColor.Sprint(uuid)
		}
		return fmt.Sprintf("%s (%s)", uuidColor.Sprint(uuid), nameColor.Sprint(name))
	}

	fmt.Fprintf(w, "Device %s", r.Address)
	if r.Name != "" {
		fmt.Fprintf(w, " %q", r.Name)
	}
	fmt.Fprintln(w)

	for pair := r.Services.Oldest(); pair != nil; pair = pair.Next() {
		sr := pair.Value
		fmt.Fprintf(w, "  Service %s\n", label(sr.UUID, sr.Name))

		for cp := sr.Characteristics.Oldest(); cp != nil; cp = cp.Next() {
			cr := cp.Value
			fmt.Fprintf(w, "    Characteristic %s [%s]\n", label(cr.UUID, cr.Name), cr.Properties)

			for _, dr := range cr.Descriptors {
				line := fmt.Sprintf("      Descriptor %s", label(dr.UUID, dr.Name))
				switch {
				case dr.Error != "":
					line += fmt.Sprintf(" <read failed: %s>", dr.Error)
				case dr.Value != "":
					line += fmt.Sprintf(" = %s", dr.Value)
				}
				fmt.Fprintln(w, line)
			}
		}
	}
}

// String renders the report without colors.
func (r *Report) String() string {
	var sb strings.Builder
	r.Render(&sb, false)
	return sb.String()
}
