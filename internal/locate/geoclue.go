package locate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bstardust/geomap/internal/logger"
)

const (
	geoService    = "org.freedesktop.GeoClue2"
	managerPath   = dbus.ObjectPath("/org/freedesktop/GeoClue2/Manager")
	managerIface  = "org.freedesktop.GeoClue2.Manager"
	clientIface   = "org.freedesktop.GeoClue2.Client"
	locationIface = "org.freedesktop.GeoClue2.Location"
	propsIface    = "org.freedesktop.DBus.Properties"

	// GeoClue accuracy level "city"
	accuracyCity = uint32(4)

	stopTimeout = time.Second
)

// DefaultDesktopID must match an installed .desktop file that carries
// X-Geoclue-2-Client=true, or GeoClue refuses to answer.
const DefaultDesktopID = "geomap"

// GeoClue asks the GeoClue2 service on the system bus for a fix
type GeoClue struct {
	desktopID string
	poll      time.Duration
}

// NewGeoClue creates a GeoClue provider
func NewGeoClue(desktopID string) *GeoClue {
	return &GeoClue{desktopID: desktopID, poll: 250 * time.Millisecond}
}

func (g *GeoClue) Name() string {
	return "geoclue"
}

// Locate starts a client and waits until it reports a location or ctx ends
func (g *GeoClue) Locate(ctx context.Context) (*Location, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	manager := bus.Object(geoService, managerPath)
	var clientPath dbus.ObjectPath
	if call := manager.CallWithContext(ctx, managerIface+".CreateClient", 0); call.Err != nil {
		return nil, fmt.Errorf("create client: %w", call.Err)
	} else if err := call.Store(&clientPath); err != nil {
		return nil, err
	}
	client := bus.Object(geoService, clientPath)

	setProp := func(name string, val interface{}) error {
		return client.CallWithContext(ctx, propsIface+".Set", 0, clientIface, name, dbus.MakeVariant(val)).Err
	}
	if err := setProp("DesktopId", g.desktopID); err != nil {
		return nil, fmt.Errorf("set DesktopId: %w", err)
	}
	if err := setProp("RequestedAccuracyLevel", accuracyCity); err != nil {
		return nil, fmt.Errorf("set accuracy: %w", err)
	}

	if call := client.CallWithContext(ctx, clientIface+".Start", 0); call.Err != nil {
		return nil, fmt.Errorf("start client: %w", call.Err)
	}
	defer stopClient(client, stopTimeout)

	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()
	for {
		locPath, err := locationPath(ctx, client)
		if err != nil {
			return nil, err
		}
		if locPath != "" && locPath != "/" {
			return readLocation(ctx, bus.Object(geoService, locPath))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// stopClient releases the GeoClue client. It runs after ctx may already be
// done, so it gets its own deadline.
func stopClient(client dbus.BusObject, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if call := client.CallWithContext(ctx, clientIface+".Stop", 0); call.Err != nil {
		logger.Debug("Failed to stop GeoClue client: %v", call.Err)
	}
}

func locationPath(ctx context.Context, client dbus.BusObject) (dbus.ObjectPath, error) {
	var variant dbus.Variant
	call := client.CallWithContext(ctx, propsIface+".Get", 0, clientIface, "Location")
	if call.Err != nil {
		return "", call.Err
	}
	if err := call.Store(&variant); err != nil {
		return "", err
	}
	locPath, _ := variant.Value().(dbus.ObjectPath)
	return locPath, nil
}

func readLocation(ctx context.Context, obj dbus.BusObject) (*Location, error) {
	var props map[string]dbus.Variant
	call := obj.CallWithContext(ctx, propsIface+".GetAll", 0, locationIface)
	if call.Err != nil {
		return nil, call.Err
	}
	if err := call.Store(&props); err != nil {
		return nil, err
	}

	lat, okLat := props["Latitude"].Value().(float64)
	lon, okLon := props["Longitude"].Value().(float64)
	if !okLat || !okLon {
		return nil, errors.New("location has no coordinates")
	}
	desc, _ := props["Description"].Value().(string)
	if desc == "" {
		desc = "Current location"
	}
	return &Location{Lat: lat, Lon: lon, Label: desc}, nil
}
