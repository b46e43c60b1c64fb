package e2e

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/nemspd/core/casefile"
	"github.com/kilianp07/nemspd/core/dispatch"
	"github.com/kilianp07/nemspd/infra/logger"
	"github.com/kilianp07/nemspd/infra/metrics"
	"github.com/kilianp07/nemspd/infra/mqtt"
)

const (
	influxOrg    = "nemspd"
	influxBucket = "dispatch"
	influxToken  = "e2e-token"
)

// startInflux starts an InfluxDB 2.7 container, onboarded through the
// image's init mode so the org, bucket and token exist before the first
// write. The container is left running until the context is cancelled.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	url := fmt.Sprintf("http://%s:%s", host, port.Port())
	return cont, url
}

// startMosquitto spins up a Mosquitto broker that accepts anonymous
// clients. The stock 2.x image only allows local connections, so a
// minimal config is mounted into the container.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0o644); err != nil {
		t.Fatalf("write mosquitto config: %v", err)
	}
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{HostFilePath: path, ContainerFilePath: "/mosquitto/config/mosquitto.conf", FileMode: 0o644},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// Test_E2E_DispatchPipeline solves a case against a live InfluxDB and
// Mosquitto pair and verifies both ends of the pipeline: solution points
// land in the bucket and solution messages reach a subscriber.
func Test_E2E_DispatchPipeline(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxCont, influxURL := startInflux(ctx, t)
	if influxCont != nil {
		defer influxCont.Terminate(ctx) //nolint:errcheck
	}
	mqttCont, mqttURL := startMosquitto(ctx, t)
	if mqttCont != nil {
		defer mqttCont.Terminate(ctx) //nolint:errcheck
	}
	t.Logf("InfluxDB started at %s", influxURL)
	t.Logf("Mosquitto started at %s", mqttURL)

	sink := metrics.NewInfluxSink(influxURL, influxToken, influxOrg, influxBucket)
	defer sink.Close()
	eng, err := dispatch.New(dispatch.Config{}, logger.NopLogger{}, sink)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	// Subscribe before publishing so no message is missed.
	received := make(chan string, 16)
	subOpts := paho.NewClientOptions().AddBroker(mqttURL).SetClientID("e2e-sub")
	sub := paho.NewClient(subOpts)
	if token := sub.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("subscriber connect: %v", token.Error())
	}
	defer sub.Disconnect(100)
	if token := sub.Subscribe("nemspd/#", 1, func(_ paho.Client, msg paho.Message) {
		received <- msg.Topic()
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}

	pub, err := mqtt.Build(mqtt.Config{Enabled: true, Broker: mqttURL, ClientID: "e2e-pub"})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer pub.Disconnect()

	cf, err := casefile.Load("testdata/single_unit.json")
	if err != nil {
		t.Fatalf("load case: %v", err)
	}
	sol, err := eng.Solve(ctx, cf, casefile.RunModeTarget)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(sol.Objective-1800) > 1e-6 {
		t.Fatalf("objective = %v, want 1800", sol.Objective)
	}

	if err := pub.PublishSolution(sol); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// One summary, one region, one trader for this case.
	topics := map[string]bool{}
	deadline := time.After(10 * time.Second)
	for len(topics) < 3 {
		select {
		case topic := <-received:
			topics[topic] = true
		case <-deadline:
			t.Fatalf("received %d topics %v, want 3", len(topics), topics)
		}
	}

	cli := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer cli.Close()
	n, err := cli.CountMeasurement(ctx, "dispatch_run")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if n == 0 {
		t.Fatalf("no dispatch_run rows recorded")
	}
	t.Logf("dispatch_run rows: %d", n)
}
