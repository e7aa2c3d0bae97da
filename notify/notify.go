// Package notify sends desktop notifications through the
// org.freedesktop.Notifications service on the D-Bus session bus.
package notify

import (
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/ovpnctl/common"
)

const (
	notifyService = "org.freedesktop.Notifications"
	notifyPath    = "/org/freedesktop/Notifications"
	notifyMethod  = "org.freedesktop.Notifications.Notify"

	defaultIcon     = "network-vpn"
	expireTimeoutMs = 5000
)

// Notifier delivers desktop notifications. The bus connection is
// established lazily on first use, so creating a Notifier never fails
// even without a session bus.
type Notifier struct {
	appName string

	mu   sync.Mutex
	conn *dbus.Conn
}

var _ common.Notifier = (*Notifier)(nil)

// New returns a notifier for the application.
func New() *Notifier {
	return &Notifier{appName: common.AppName}
}

// Notify sends a notification with the default VPN icon.
func (n *Notifier) Notify(title, message string) error {
	return n.NotifyWithIcon(title, message, defaultIcon)
}

// NotifyWithIcon sends a notification using a freedesktop icon name.
func (n *Notifier) NotifyWithIcon(title, message, icon string) error {
	conn, err := n.bus()
	if err != nil {
		return common.WrapError(err, "connect to session bus")
	}

	obj := conn.Object(notifyService, dbus.ObjectPath(notifyPath))
	call := obj.Call(notifyMethod, 0,
		n.appName,
		uint32(0),
		icon,
		title,
		message,
		[]string{},
		map[string]dbus.Variant{},
		int32(expireTimeoutMs),
	)
	if call.Err != nil {
		return common.WrapError(call.Err, "send notification")
	}
	return nil
}

func (n *Notifier) bus() (*dbus.Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil {
		return n.conn, nil
	}

	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, err
	}
	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.Hello(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	n.conn = conn
	return n.conn, nil
}

// Close releases the bus connection if one was established.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}
