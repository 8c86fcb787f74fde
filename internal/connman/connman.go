// Package connman talks to the ConnMan connection manager over the D-Bus
// system bus: it lists services with their proxy settings and forwards
// service PropertyChanged signals.
package connman

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/amartya2002/connectivity-watchdog/watchdog"
)

const (
	busName          = "net.connman"
	managerPath      = dbus.ObjectPath("/")
	managerInterface = "net.connman.Manager"
	serviceInterface = "net.connman.Service"
	propertyChanged  = "PropertyChanged"

	signalBuffer = 64
)

var errMalformedSignal = errors.New("malformed PropertyChanged signal")

// Client implements watchdog.ServiceLister and watchdog.Subscriber.
type Client struct {
	conn   *dbus.Conn
	logger *zap.Logger
}

// Dial connects to the system bus.
func Dial(logger *zap.Logger) (*Client, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	return NewClient(conn, logger), nil
}

func NewClient(conn *dbus.Conn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{conn: conn, logger: logger.Named("connman")}
}

func (c *Client) Close() error { return c.conn.Close() }

// serviceEntry mirrors one (object path, properties) pair of GetServices.
type serviceEntry struct {
	Path       dbus.ObjectPath
	Properties map[string]dbus.Variant
}

// Services lists services in ConnMan's order; the one holding the
// default route comes first.
func (c *Client) Services(ctx context.Context) ([]watchdog.Service, error) {
	var entries []serviceEntry
	call := c.conn.Object(busName, managerPath).CallWithContext(ctx, managerInterface+".GetServices", 0)
	if err := call.Store(&entries); err != nil {
		return nil, fmt.Errorf("GetServices: %w", err)
	}
	return decodeServices(entries), nil
}

func decodeServices(entries []serviceEntry) []watchdog.Service {
	services := make([]watchdog.Service, 0, len(entries))
	for _, e := range entries {
		state, ok := stringProperty(e.Properties, "State")
		if !ok {
			continue
		}
		services = append(services, watchdog.Service{
			Path:  string(e.Path),
			State: state,
			Proxy: decodeProxy(e.Properties["Proxy"]),
		})
	}
	return services
}

func decodeProxy(v dbus.Variant) watchdog.ProxySettings {
	props, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return watchdog.ProxySettings{}
	}
	method, _ := stringProperty(props, "Method")
	servers, _ := props["Servers"].Value().([]string)
	return watchdog.ProxySettings{Method: method, Servers: servers}
}

func stringProperty(props map[string]dbus.Variant, name string) (string, bool) {
	v, ok := props[name]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

// Subscribe registers a match rule for service PropertyChanged signals.
// The returned channel is closed when the bus connection goes away.
func (c *Client) Subscribe(ctx context.Context) (<-chan watchdog.PropertyChange, error) {
	err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchSender(busName),
		dbus.WithMatchInterface(serviceInterface),
		dbus.WithMatchMember(propertyChanged),
	)
	if err != nil {
		return nil, fmt.Errorf("add match for %s.%s: %w", serviceInterface, propertyChanged, err)
	}

	signals := make(chan *dbus.Signal, signalBuffer)
	c.conn.Signal(signals)

	out := make(chan watchdog.PropertyChange, signalBuffer)
	go c.forward(signals, out)
	return out, nil
}

func (c *Client) forward(signals <-chan *dbus.Signal, out chan<- watchdog.PropertyChange) {
	defer close(out)
	for sig := range signals {
		if sig.Name != serviceInterface+"."+propertyChanged {
			continue
		}
		change, err := decodePropertyChanged(sig)
		if err != nil {
			c.logger.Warn("dropping signal", zap.String("path", string(sig.Path)), zap.Error(err))
			continue
		}
		out <- change
	}
}

func decodePropertyChanged(sig *dbus.Signal) (watchdog.PropertyChange, error) {
	if len(sig.Body) < 2 {
		return watchdog.PropertyChange{}, fmt.Errorf("%w: %d body values", errMalformedSignal, len(sig.Body))
	}
	name, ok := sig.Body[0].(string)
	if !ok {
		return watchdog.PropertyChange{}, fmt.Errorf("%w: name is %T", errMalformedSignal, sig.Body[0])
	}
	value := sig.Body[1]
	if v, ok := value.(dbus.Variant); ok {
		value = v.Value()
	}
	return watchdog.PropertyChange{
		Service: string(sig.Path),
		Name:    name,
		Value:   fmt.Sprint(value),
	}, nil
}
