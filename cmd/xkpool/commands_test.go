package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xkpool/pkg/config/xconf"
	"github.com/omeyang/xkpool/pkg/mq/xkafkapool"
	"github.com/omeyang/xkpool/pkg/observability/xlog"
	"github.com/omeyang/xkpool/pkg/observability/xmetrics"
	"github.com/omeyang/xkpool/pkg/resilience/xretry"
)

// =============================================================================
// 测试替身
// =============================================================================

// fakeBroker 按主题保存待消费的消息，为每次建连返回一个 brokerHandle。
type fakeBroker struct {
	data     map[string][]string
	offsets  map[string]int64
	failures int
	// createErrs 次建连失败后才开始成功。
	createErrs int
	created    int
	commits    int
}

var (
	errBrokerDown = errors.New("broker down")
	errConnect    = errors.New("connect refused")
)

func newFakeBroker(data map[string][]string) *fakeBroker {
	return &fakeBroker{data: data, offsets: map[string]int64{}}
}

func (b *fakeBroker) factory(*kafka.ConfigMap) (xkafkapool.Handle, error) {
	if b.createErrs > 0 {
		b.createErrs--
		return nil, errConnect
	}
	b.created++
	return &brokerHandle{broker: b}, nil
}

type brokerHandle struct {
	broker *fakeBroker
	topic  string
}

func (h *brokerHandle) Subscribe(topic string) error {
	h.topic = topic
	return nil
}

func (h *brokerHandle) Poll(time.Duration) (*kafka.Message, error) {
	b := h.broker
	if b.failures > 0 {
		b.failures--
		return nil, errBrokerDown
	}
	queue := b.data[h.topic]
	if len(queue) == 0 {
		return nil, nil
	}
	b.data[h.topic] = queue[1:]
	offset := b.offsets[h.topic]
	b.offsets[h.topic]++
	topic := h.topic
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Offset: kafka.Offset(offset)},
		Value:          []byte(queue[0]),
	}, nil
}

func (h *brokerHandle) Commit(bool) error {
	h.broker.commits++
	return nil
}

func (h *brokerHandle) Close() error { return nil }

const testConfigYAML = `
log:
  level: warn
kafka:
  brokers: [k1:9092, k2:9092]
  group_id: billing
  consumer_options:
    session.timeout.ms: "45000"
  subscriptions:
    - topic: a
      start_from_beginning: true
    - topic: b
      max_bytes_per_message: 2048
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pool.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func testEnv(b *fakeBroker) (*environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &environment{stdout: &stdout, stderr: &stderr}
	if b != nil {
		env.factory = b.factory
	}
	return env, &stdout, &stderr
}

func runArgs(env *environment, args ...string) int {
	return run(context.Background(), env, append([]string{"xkpool"}, args...))
}

// =============================================================================
// 命令结构
// =============================================================================

func TestCreateCommands(t *testing.T) {
	cmds := createCommands(defaultEnvironment())
	names := make(map[string]bool)
	for _, cmd := range cmds {
		names[cmd.Name] = true
	}
	for _, name := range []string{"consume", "check-config"} {
		if !names[name] {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestUsageError(t *testing.T) {
	err := &usageError{msg: "test error"}
	if err.Error() != "test error" {
		t.Errorf("usageError.Error() = %q, want %q", err.Error(), "test error")
	}
	var target *usageError
	if !errors.As(err, &target) {
		t.Error("errors.As failed for *usageError")
	}
}

func TestIsCLIUsageError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("flag provided but not defined: -x"), true},
		{errors.New(`invalid value "abc" for flag -poll-timeout`), true},
		{errors.New("No help topic for 'nope'"), true},
		{errBrokerDown, false},
	}
	for _, tt := range tests {
		if got := isCLIUsageError(tt.err); got != tt.want {
			t.Errorf("isCLIUsageError(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRunExitCodes(t *testing.T) {
	valid := writeConfig(t, testConfigYAML)
	noSubs := writeConfig(t, "kafka:\n  brokers: [k1:9092]\n  group_id: g\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing_config", []string{"check-config"}, 2},
		{"no_subscriptions", []string{"-c", noSubs, "check-config"}, 2},
		{"unknown_flag", []string{"-c", valid, "consume", "--nope"}, 2},
		{"negative_max_messages", []string{"-c", valid, "consume", "--max-messages=-1"}, 2},
		{"bad_log_level", []string{"-c", valid, "consume", "--log-level", "loud"}, 2},
		{"bad_restart_backoff", []string{"-c", valid, "consume", "--restart-backoff", "linear"}, 2},
		{"missing_file", []string{"-c", filepath.Join(t.TempDir(), "none.yaml"), "check-config"}, 1},
		{"ok", []string{"-c", valid, "check-config"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _, stderr := testEnv(newFakeBroker(nil))
			if got := runArgs(env, tt.args...); got != tt.want {
				t.Errorf("exit code = %d, want %d (stderr: %s)", got, tt.want, stderr)
			}
		})
	}
}

// =============================================================================
// check-config
// =============================================================================

func TestCheckConfig(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	var out bytes.Buffer
	if err := cmdCheckConfig(&out, path, defaultSection); err != nil {
		t.Fatalf("cmdCheckConfig: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"group: billing\n",
		"fetch_messages: 100\n",
		"fetch_wait_max_time: 1s\n",
		"topic a:\n",
		"  auto.offset.reset=earliest\n",
		"  bootstrap.servers=k1:9092,k2:9092\n",
		"  session.timeout.ms=45000\n",
		"topic b:\n",
		"  max.partition.fetch.bytes=2048\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "client.id") {
		t.Errorf("check-config must not invent a client.id:\n%s", got)
	}
	if strings.Index(got, "topic a:") > strings.Index(got, "topic b:") {
		t.Errorf("topics out of subscription order:\n%s", got)
	}
}

// =============================================================================
// consume
// =============================================================================

func TestConsumePollMode(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	broker := newFakeBroker(map[string][]string{"a": {"a-0", "a-1"}, "b": {"b-0"}})
	env, stdout, stderr := testEnv(broker)

	code := runArgs(env, "-c", path, "consume", "--max-messages", "3", "--commit-interval", "0")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	want := "a\t0\t0\t\ta-0\na\t0\t1\t\ta-1\nb\t0\t0\t\tb-0\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
	if broker.commits == 0 {
		t.Error("expected at least one commit")
	}
	// log.level=warn 来自配置文件，Info 级别的统计不应输出。
	if strings.Contains(stderr.String(), "topic stats") {
		t.Errorf("info logs leaked at warn level: %s", stderr)
	}
}

func TestConsumeBatchMode(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	broker := newFakeBroker(map[string][]string{"a": {"a-0", "a-1"}, "b": {"b-0", "b-1"}})
	env, stdout, stderr := testEnv(broker)

	code := runArgs(env, "-c", path, "consume", "--batch", "--max-messages", "4",
		"--poll-timeout", "1ms", "--log-level", "info")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4: %q", len(lines), lines)
	}
	log := stderr.String()
	for _, want := range []string{"consumer pool starting", "topic stats", "count=4"} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q: %s", want, log)
		}
	}
}

func TestConsumeRestartsAfterFailure(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	broker := newFakeBroker(map[string][]string{"a": {"a-0"}})
	broker.failures = 1
	env, stdout, stderr := testEnv(broker)

	code := runArgs(env, "-c", path, "consume", "--max-messages", "1",
		"--restart-delay", "1ms", "--max-restarts", "2", "--log-level", "warn")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if stdout.String() != "a\t0\t0\t\ta-0\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if broker.created < 2 {
		t.Errorf("created = %d, want a fresh consumer after restart", broker.created)
	}
	if !strings.Contains(stderr.String(), "consume loop failed, restarting") {
		t.Errorf("restart not logged: %s", stderr)
	}
}

func TestConsumeRestartsExhausted(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	broker := newFakeBroker(map[string][]string{"a": {"a-0"}})
	broker.failures = 100
	env, _, stderr := testEnv(broker)

	code := runArgs(env, "-c", path, "consume", "--restart-delay", "1ms", "--max-restarts", "1")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if broker.created != 2 {
		t.Errorf("created = %d, want 2 (initial + one restart)", broker.created)
	}
	if !strings.Contains(stderr.String(), errBrokerDown.Error()) {
		t.Errorf("stderr missing cause: %s", stderr)
	}
}

func TestConsumeZeroRestartsRunsOnce(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	broker := newFakeBroker(map[string][]string{"a": {"a-0"}})
	broker.failures = 100
	env, _, stderr := testEnv(broker)

	code := runArgs(env, "-c", path, "consume", "--max-restarts", "0")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if broker.created != 1 {
		t.Errorf("created = %d, want 1", broker.created)
	}
	if strings.Contains(stderr.String(), "restarting") {
		t.Errorf("unexpected restart: %s", stderr)
	}
}

func TestConsumeRestartBackoffModes(t *testing.T) {
	for _, mode := range []string{"none", "fixed", "EXPONENTIAL"} {
		t.Run(mode, func(t *testing.T) {
			path := writeConfig(t, testConfigYAML)
			broker := newFakeBroker(map[string][]string{"a": {"a-0"}})
			broker.failures = 1
			env, stdout, stderr := testEnv(broker)

			code := runArgs(env, "-c", path, "consume", "--max-messages", "1",
				"--restart-backoff", mode, "--restart-delay", "1ms", "--max-restarts", "1")
			if code != 0 {
				t.Fatalf("exit code = %d, stderr: %s", code, stderr)
			}
			if stdout.String() != "a\t0\t0\t\ta-0\n" {
				t.Errorf("stdout = %q", stdout.String())
			}
		})
	}
}

func TestRestartPolicies(t *testing.T) {
	policy, backoff := restartPolicies(consumeOptions{restartBackoff: backoffNone, restartDelay: time.Second})
	if _, ok := policy.(*xretry.NeverRetryPolicy); !ok {
		t.Errorf("policy = %T, want *xretry.NeverRetryPolicy", policy)
	}
	if d := backoff.NextDelay(3); d != 0 {
		t.Errorf("none delay = %v", d)
	}

	policy, backoff = restartPolicies(consumeOptions{
		maxRestarts: 4, restartBackoff: backoffFixed, restartDelay: 2 * time.Second,
	})
	if policy.MaxAttempts() != 5 {
		t.Errorf("max attempts = %d, want 5", policy.MaxAttempts())
	}
	if d := backoff.NextDelay(1); d != 2*time.Second {
		t.Errorf("fixed delay(1) = %v", d)
	}
	if d := backoff.NextDelay(4); d != 2*time.Second {
		t.Errorf("fixed delay(4) = %v", d)
	}

	_, backoff = restartPolicies(consumeOptions{
		maxRestarts: 1, restartBackoff: backoffFixed, restartDelay: time.Hour,
	})
	if d := backoff.NextDelay(1); d != maxRestartDelay {
		t.Errorf("fixed delay capped = %v, want %v", d, maxRestartDelay)
	}

	_, backoff = restartPolicies(consumeOptions{maxRestarts: 1, restartBackoff: backoffExponential})
	if _, ok := backoff.(*xretry.ExponentialBackoff); !ok {
		t.Errorf("backoff = %T, want *xretry.ExponentialBackoff", backoff)
	}
}

func TestConsumeConnectBreakerStopsRestarts(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	broker := newFakeBroker(map[string][]string{"a": {"a-0"}})
	broker.createErrs = 100
	env, _, stderr := testEnv(broker)

	code := runArgs(env, "-c", path, "consume", "--restart-delay", "1ms",
		"--max-restarts", "10", "--connect-failures", "2")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	// 2 次失败触发熔断，第 3 次被拒绝且不可重试。
	if broker.createErrs != 98 {
		t.Errorf("factory called %d times, want 2", 100-broker.createErrs)
	}
	if !strings.Contains(stderr.String(), "circuit breaker is open") {
		t.Errorf("stderr missing breaker rejection: %s", stderr)
	}
}

func TestConsumeConnectBreakerDisabled(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	broker := newFakeBroker(map[string][]string{"a": {"a-0"}})
	broker.createErrs = 2
	env, stdout, stderr := testEnv(broker)

	code := runArgs(env, "-c", path, "consume", "--restart-delay", "1ms",
		"--max-restarts", "3", "--connect-failures", "0", "--max-messages", "1")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if stdout.String() != "a\t0\t0\t\ta-0\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestConsumeCancelledContext(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	broker := newFakeBroker(map[string][]string{"a": {"a-0"}})
	env, stdout, _ := testEnv(broker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := consumeOptions{pollTimeout: time.Millisecond, logFormat: "text"}
	if err := cmdConsume(ctx, env, path, defaultSection, opts); err != nil {
		t.Fatalf("cmdConsume: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("nothing should be consumed after cancel, got %q", stdout.String())
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestProcessLogsWithProducerTrace(t *testing.T) {
	var logs bytes.Buffer
	logger, cleanup, err := xlog.New().SetOutput(&logs).SetFormat("json").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer func() { _ = cleanup() }()
	observer, err := xmetrics.NewOTelObserver()
	if err != nil {
		t.Fatalf("NewOTelObserver: %v", err)
	}

	c := &consumer{logger: logger, observer: observer, out: failWriter{}}
	topic := "a"
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic},
		Headers: []kafka.Header{{
			Key:   "traceparent",
			Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"),
		}},
	}

	if err := c.process(context.Background(), msg); err == nil {
		t.Fatal("process should fail when the writer fails")
	}
	if c.consumed != 0 {
		t.Errorf("consumed = %d, want 0", c.consumed)
	}
	got := logs.String()
	if !strings.Contains(got, `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`) {
		t.Errorf("error log not correlated with producer trace: %s", got)
	}
	if !strings.Contains(got, "disk full") {
		t.Errorf("error log missing cause: %s", got)
	}
}

func TestEnsureClientID(t *testing.T) {
	cfg := &xkafkapool.Config{}
	ensureClientID(cfg)
	if !strings.HasPrefix(cfg.ClientID, "xkpool-") {
		t.Errorf("ClientID = %q, want xkpool- prefix", cfg.ClientID)
	}

	cfg = &xkafkapool.Config{ClientID: "fixed"}
	ensureClientID(cfg)
	if cfg.ClientID != "fixed" {
		t.Errorf("ClientID = %q, want fixed", cfg.ClientID)
	}

	cfg = &xkafkapool.Config{ConsumerOptions: map[string]string{"client.id": "raw"}}
	ensureClientID(cfg)
	if cfg.ClientID != "" {
		t.Errorf("ClientID = %q, want empty when client.id is in consumer_options", cfg.ClientID)
	}
}

// =============================================================================
// 日志
// =============================================================================

func TestBuildLoggerPrecedence(t *testing.T) {
	src, err := xconf.NewFromBytes([]byte("log:\n  level: warn\n"), xconf.FormatYAML,
		xconf.WithDelim(xkafkapool.ConfigDelim))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}

	tests := []struct {
		name string
		flag string
		want xlog.Level
	}{
		{"from_file", "", xlog.LevelWarn},
		{"flag_wins", "error", xlog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _, _ := testEnv(nil)
			logger, cleanup, err := buildLogger(env, src, consumeOptions{logLevel: tt.flag})
			if err != nil {
				t.Fatalf("buildLogger: %v", err)
			}
			defer func() { _ = cleanup() }()
			if got := logger.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}

	env, _, _ := testEnv(nil)
	_, _, err = buildLogger(env, src, consumeOptions{logFormat: "xml"})
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Errorf("unknown format should be a usage error, got %v", err)
	}
}

func TestLevelReloader(t *testing.T) {
	debugCfg, err := xconf.NewFromBytes([]byte("log:\n  level: debug\n"), xconf.FormatYAML,
		xconf.WithDelim(xkafkapool.ConfigDelim))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	badCfg, err := xconf.NewFromBytes([]byte("log:\n  level: loud\n"), xconf.FormatYAML,
		xconf.WithDelim(xkafkapool.ConfigDelim))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}

	tests := []struct {
		name   string
		cfg    xconf.Config
		err    error
		pinned bool
		want   xlog.Level
	}{
		{"applies_file_level", debugCfg, nil, false, xlog.LevelDebug},
		{"pinned_by_flag", debugCfg, nil, true, xlog.LevelInfo},
		{"reload_error", debugCfg, errors.New("parse"), false, xlog.LevelInfo},
		{"invalid_level", badCfg, nil, false, xlog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, cleanup, err := xlog.New().SetOutput(&buf).Build()
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			defer func() { _ = cleanup() }()

			levelReloader(logger, tt.pinned)(tt.cfg, tt.err)
			if got := logger.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}
