// Package util provides helpers shared by the integration tests: a disposable
// Mosquitto broker and a poller for Prometheus endpoints.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval   = 50 * time.Millisecond
	mosquittoImage = "eclipse-mosquitto:2.0"
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
connection_messages true
`

// poll calls check until it reports done, returns an error, or ctx expires.
func poll(ctx context.Context, check func() (bool, error)) error {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// WaitForMetric polls metricsURL until substr appears in the exposition.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	err := poll(ctx, func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		if err != nil {
			return false, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false, nil
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, fmt.Errorf("read metrics body: %w", err)
		}
		return strings.Contains(string(body), substr), nil
	})
	if err != nil {
		return fmt.Errorf("metric %q not found: %w", substr, err)
	}
	return nil
}

// Broker is a running Mosquitto container.
type Broker struct {
	URL       string
	container tc.Container
	confDir   string
}

// Close terminates the container and removes its configuration.
func (b *Broker) Close() {
	if b.container != nil {
		_ = b.container.Terminate(context.Background())
	}
	_ = os.RemoveAll(b.confDir)
}

// StartMosquitto launches an anonymous Mosquitto broker and waits until it
// accepts MQTT connections.
func StartMosquitto(ctx context.Context) (*Broker, error) {
	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return nil, err
	}
	b := &Broker{confDir: dir}
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(mosquittoConf), 0o644); err != nil {
		b.Close()
		return nil, err
	}

	b.container, err = tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        mosquittoImage,
			ExposedPorts: []string{"1883/tcp"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
			Files: []tc.ContainerFile{{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0o644,
			}},
		},
		Started: true,
	})
	if err != nil {
		b.Close()
		return nil, err
	}

	host, err := b.container.Host(ctx)
	if err != nil {
		b.Close()
		return nil, err
	}
	port, err := b.container.MappedPort(ctx, "1883")
	if err != nil {
		b.Close()
		return nil, err
	}
	b.URL = fmt.Sprintf("tcp://%s:%s", host, port.Port())

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, b.URL); err != nil {
		b.Close()
		return nil, fmt.Errorf("mosquitto not ready: %w", err)
	}
	return b, nil
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	return poll(ctx, func() (bool, error) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() != nil {
			return false, nil
		}
		cli.Disconnect(100)
		return true, nil
	})
}
