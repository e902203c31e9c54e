// Package bluez talks to the BlueZ daemon over the system D-Bus: it lists
// known devices and their services, and obtains RFCOMM streams through the
// org.bluez.Profile1 fd handoff.
package bluez

import (
	"dosgo/btSerial/comm"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName          = "org.bluez"
	adapterIface     = "org.bluez.Adapter1"
	deviceIface      = "org.bluez.Device1"
	profileIface     = "org.bluez.Profile1"
	profileManager   = "org.bluez.ProfileManager1"
	objectManager    = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
	profileRootPath  = "/dosgo/btSerial/profile"
	bluezManagerPath = dbus.ObjectPath("/org/bluez")
)

type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// AddrFromPath extracts the address from a device path,
// /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF -> AA:BB:CC:DD:EE:FF.
func AddrFromPath(path dbus.ObjectPath) string {
	s := string(path)
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return ""
	}
	s = s[i+1:]
	if !strings.HasPrefix(s, "dev_") {
		return ""
	}
	return strings.ReplaceAll(s[4:], "_", ":")
}

// PathFromAddr is the inverse of AddrFromPath for the given adapter.
func PathFromAddr(adapterPath dbus.ObjectPath, addr string) dbus.ObjectPath {
	s := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath(string(adapterPath) + "/dev_" + s)
}

// deviceRecord is a Device1 object as seen in GetManagedObjects.
type deviceRecord struct {
	handle comm.DeviceHandle
	uuids  []string
}

func (r deviceRecord) has(id comm.ServiceID) bool {
	for _, s := range r.uuids {
		parsed, err := comm.ParseServiceID(s)
		if err == nil && parsed == id {
			return true
		}
	}
	return false
}

// devicesFromObjects collects every Device1 object, optionally restricted to
// one adapter, sorted by name and then address.
func devicesFromObjects(objects managedObjects, adapter dbus.ObjectPath) []deviceRecord {
	var out []deviceRecord
	for path, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if adapter != "" {
			if owner, ok := props["Adapter"].Value().(dbus.ObjectPath); ok && owner != adapter {
				continue
			}
		}

		addr := variantString(props, "Address")
		if addr == "" {
			addr = AddrFromPath(path)
		}
		name := variantString(props, "Alias")
		if name == "" {
			name = variantString(props, "Name")
		}
		out = append(out, deviceRecord{
			handle: comm.DeviceHandle{
				Address:   addr,
				Name:      name,
				Path:      string(path),
				Paired:    variantBool(props, "Paired"),
				Connected: variantBool(props, "Connected"),
			},
			uuids: variantStrings(props, "UUIDs"),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].handle, out[j].handle
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Address < b.Address
	})
	return out
}

// defaultAdapter returns the lowest adapter path (hci0 before hci1), or the
// adapter whose last path element equals name when name is set.
func defaultAdapter(objects managedObjects, name string) (dbus.ObjectPath, bool) {
	var paths []string
	for path, ifaces := range objects {
		if _, ok := ifaces[adapterIface]; !ok {
			continue
		}
		if name != "" && !strings.HasSuffix(string(path), "/"+name) {
			continue
		}
		paths = append(paths, string(path))
	}
	if len(paths) == 0 {
		return "", false
	}
	sort.Strings(paths)
	return dbus.ObjectPath(paths[0]), true
}

// servicesFromUUIDs keeps the order BlueZ reports. Entries that are not
// UUIDs are skipped.
func servicesFromUUIDs(dev comm.DeviceHandle, uuids []string) []comm.Service {
	services := make([]comm.Service, 0, len(uuids))
	for _, s := range uuids {
		id, err := comm.ParseServiceID(s)
		if err != nil {
			continue
		}
		services = append(services, comm.Service{ID: id, Name: id.Name(), Device: dev})
	}
	return services
}

func variantString(props map[string]dbus.Variant, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

func variantBool(props map[string]dbus.Variant, key string) bool {
	v, ok := props[key]
	if !ok {
		return false
	}
	b, _ := v.Value().(bool)
	return b
}

func variantStrings(props map[string]dbus.Variant, key string) []string {
	v, ok := props[key]
	if !ok {
		return nil
	}
	s, _ := v.Value().([]string)
	return s
}
