package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrRejected is returned when a device does not acknowledge provisioning.
var ErrRejected = errors.New("device rejected configuration")

const provisionTimeout = 10 * time.Second

// Provision sends router credentials to a device in setup mode.
// A bare host is dialed on DefaultConfigPort.
// The device answers with a line starting with "OK" on success.
func Provision(ctx context.Context, deviceAddr, ssid, password string) error {
	if ssid == "" {
		return errors.New("ssid is required")
	}
	if strings.ContainsAny(ssid+password, "|\n") {
		return errors.New("ssid and password must not contain '|' or newlines")
	}

	addr, err := ParseEndpoint(deviceAddr, DefaultConfigPort)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: provisionTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to device: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(provisionTimeout)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(conn, "WIFI_CONFIG|%s|%s\n", ssid, password); err != nil {
		return fmt.Errorf("failed to send configuration: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return fmt.Errorf("failed to read device reply: %w", err)
	}
	reply = strings.TrimSpace(reply)

	if !strings.HasPrefix(reply, "OK") {
		return fmt.Errorf("%w: %q", ErrRejected, reply)
	}

	log.Info().Str("device", addr).Str("ssid", ssid).Msg("Device accepted network configuration")
	return nil
}
