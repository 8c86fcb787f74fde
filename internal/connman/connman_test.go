package connman

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amartya2002/connectivity-watchdog/watchdog"
)

func proxyVariant(method string, servers ...string) dbus.Variant {
	props := map[string]dbus.Variant{"Method": dbus.MakeVariant(method)}
	if servers != nil {
		props["Servers"] = dbus.MakeVariant(servers)
	}
	return dbus.MakeVariant(props)
}

func TestDecodeServices(t *testing.T) {
	entries := []serviceEntry{
		{
			Path: "/net/connman/service/ethernet_1",
			Properties: map[string]dbus.Variant{
				"State": dbus.MakeVariant("online"),
				"Proxy": proxyVariant("manual", "proxy:3128"),
			},
		},
		{
			// no State: skipped
			Path:       "/net/connman/service/broken",
			Properties: map[string]dbus.Variant{"Name": dbus.MakeVariant("x")},
		},
		{
			Path: "/net/connman/service/wifi_1",
			Properties: map[string]dbus.Variant{
				"State": dbus.MakeVariant("ready"),
				"Proxy": proxyVariant("auto"),
			},
		},
		{
			Path:       "/net/connman/service/wifi_2",
			Properties: map[string]dbus.Variant{"State": dbus.MakeVariant("idle")},
		},
	}

	got := decodeServices(entries)
	require.Len(t, got, 3)
	assert.Equal(t, watchdog.Service{
		Path:  "/net/connman/service/ethernet_1",
		State: "online",
		Proxy: watchdog.ProxySettings{Method: "manual", Servers: []string{"proxy:3128"}},
	}, got[0])
	assert.Equal(t, "auto", got[1].Proxy.Method)
	assert.Empty(t, got[1].Proxy.Servers)
	assert.Equal(t, watchdog.ProxySettings{}, got[2].Proxy)
}

func TestDecodePropertyChanged(t *testing.T) {
	sig := &dbus.Signal{
		Path: "/net/connman/service/wifi_1",
		Name: "net.connman.Service.PropertyChanged",
		Body: []interface{}{"State", dbus.MakeVariant("configuration")},
	}
	got, err := decodePropertyChanged(sig)
	require.NoError(t, err)
	assert.Equal(t, watchdog.PropertyChange{
		Service: "/net/connman/service/wifi_1",
		Name:    "State",
		Value:   "configuration",
	}, got)
}

func TestDecodePropertyChanged_Malformed(t *testing.T) {
	_, err := decodePropertyChanged(&dbus.Signal{Body: []interface{}{"State"}})
	assert.ErrorIs(t, err, errMalformedSignal)

	_, err = decodePropertyChanged(&dbus.Signal{Body: []interface{}{uint8(1), dbus.MakeVariant("x")}})
	assert.ErrorIs(t, err, errMalformedSignal)
}

func TestForwardSkipsForeignAndMalformedSignals(t *testing.T) {
	c := NewClient(nil, nil)
	signals := make(chan *dbus.Signal, 3)
	out := make(chan watchdog.PropertyChange, 3)

	signals <- &dbus.Signal{Name: "net.connman.Manager.PropertyChanged", Body: []interface{}{"State", dbus.MakeVariant("online")}}
	signals <- &dbus.Signal{Name: "net.connman.Service.PropertyChanged", Body: []interface{}{}}
	signals <- &dbus.Signal{Path: "/svc", Name: "net.connman.Service.PropertyChanged", Body: []interface{}{"Strength", dbus.MakeVariant(uint8(60))}}
	close(signals)

	c.forward(signals, out)

	var got []watchdog.PropertyChange
	for change := range out {
		got = append(got, change)
	}
	assert.Equal(t, []watchdog.PropertyChange{{Service: "/svc", Name: "Strength", Value: "60"}}, got)
}
