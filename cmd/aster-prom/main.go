// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

// aster-prom scrapes a Prometheus metrics endpoint (text or protobuf
// exposition format) and writes the samples as asterctl sensor files, so
// panels can show metrics from node_exporter or any other exporter. Files
// are replaced atomically like aster-sysinfo's.
package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/asterctl/asterctl/pkg/config"
	"github.com/asterctl/asterctl/pkg/helpers"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeProtobuf = "application/vnd.google.protobuf"

	acceptHeaderText     = "text/plain;version=0.0.4;q=0.3"
	acceptHeaderProtobuf = "application/vnd.google.protobuf;proto=io.prometheus.client.MetricFamily;" +
		"encoding=delimited;q=0.7,text/plain;version=0.0.4;q=0.3"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	outFile := flag.String("out", "", "output sensor file")
	console := flag.Bool("console", false, "print values to stdout")
	certFile := flag.String("cert", "", "client certificate file")
	keyFile := flag.String("key", "", "client certificate's key file")
	insecure := flag.Bool("accept-invalid-cert", false, "accept any certificate during TLS handshake (testing only)")
	connectTimeout := flag.Int("connect-timeout", 10, "connect timeout in seconds for the HTTP request")
	timeout := flag.Int("timeout", 15, "total timeout in seconds for the HTTP request")
	proto := flag.Bool("proto", false, "prefer protobuf format over text format")
	debug := flag.Bool("debug", false, "enable debug logging")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("aster-prom v%s\n", config.AppVersion)
		return nil
	}

	if err := helpers.InitLogging(
		filepath.Join(xdg.StateHome, config.AppName),
		[]io.Writer{os.Stderr},
	); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	helpers.SetDebugLogging(*debug)

	if (*certFile == "") != (*keyFile == "") {
		return errors.New("--cert and --key must be given together")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, contentType, err := readInput(ctx, flag.Arg(0), fetchOptions{
		certFile:       *certFile,
		keyFile:        *keyFile,
		insecure:       *insecure,
		connectTimeout: time.Duration(*connectTimeout) * time.Second,
		timeout:        time.Duration(*timeout) * time.Second,
		preferProto:    *proto,
	})
	if err != nil {
		return err
	}

	sensorValues, err := parseSensorData(data, contentType)
	if err != nil {
		return err
	}

	if *outFile != "" {
		if err := os.MkdirAll(filepath.Dir(*outFile), 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := writeAtomic(*outFile, renderSensors(sensorValues)); err != nil {
			return err
		}
	}

	if *console {
		fmt.Print(renderSensors(sensorValues))
	}

	return nil
}

type fetchOptions struct {
	certFile       string
	keyFile        string
	connectTimeout time.Duration
	timeout        time.Duration
	insecure       bool
	preferProto    bool
}

// readInput resolves the metrics source: a URL is scraped over HTTP, any
// other non-empty argument is read as a file, and an empty argument reads
// from stdin.
func readInput(ctx context.Context, input string, opts fetchOptions) ([]byte, string, error) {
	if input == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, "text/plain", nil
	}

	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetchMetrics(ctx, input, opts)
	}

	data, err := os.ReadFile(input) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, "", fmt.Errorf("failed to read metrics file: %w", err)
	}
	contentType := "text/plain"
	if strings.HasSuffix(input, ".pb") || strings.HasSuffix(input, ".protobuf") {
		contentType = contentTypeProtobuf
	}
	return data, contentType, nil
}

func fetchMetrics(ctx context.Context, metricsURL string, opts fetchOptions) ([]byte, string, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: opts.insecure, //nolint:gosec // explicit opt-in flag
		MinVersion:         tls.VersionTLS12,
	}
	if opts.certFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.certFile, opts.keyFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	client := &http.Client{
		Timeout: opts.timeout,
		Transport: &http.Transport{
			TLSClientConfig:       tlsCfg,
			ResponseHeaderTimeout: opts.connectTimeout,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build metrics request: %w", err)
	}
	if opts.preferProto {
		req.Header.Set("Accept", acceptHeaderProtobuf)
	} else {
		req.Header.Set("Accept", acceptHeaderText)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch metrics: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing metrics response")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("metrics request failed with status: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read metrics response: %w", err)
	}
	return data, strings.ToLower(resp.Header.Get("Content-Type")), nil
}

func isProtobufFormat(contentType string) bool {
	return strings.Contains(contentType, "protobuf")
}

// parseSensorData converts an exposition payload into sensor pairs. Each
// metric becomes one sensor keyed by `name{labels}`; colons are replaced in
// keys because the sensor file format uses them as separator.
func parseSensorData(data []byte, contentType string) (map[string]string, error) {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	if isProtobufFormat(contentType) {
		format = expfmt.NewFormat(expfmt.TypeProtoDelim)
	}

	sensorValues := make(map[string]string)
	decoder := expfmt.NewDecoder(bytes.NewReader(data), format)
	for {
		var family dto.MetricFamily
		err := decoder.Decode(&family)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse metrics: %w", err)
		}
		convertFamily(&family, sensorValues)
	}
	return sensorValues, nil
}

func convertFamily(family *dto.MetricFamily, sensorValues map[string]string) {
	name := family.GetName()
	for _, metric := range family.GetMetric() {
		value, ok := metricValue(family.GetType(), metric)
		if !ok {
			log.Warn().Msgf("skipping unsupported %s metric: %s", family.GetType(), name)
			continue
		}

		key := name
		if labels := formatLabels(metric); labels != "" {
			key = fmt.Sprintf("%s{%s}", name, labels)
		}
		sensorValues[strings.ReplaceAll(key, ":", "_")] = value
	}
}

func metricValue(metricType dto.MetricType, metric *dto.Metric) (string, bool) {
	switch metricType {
	case dto.MetricType_COUNTER:
		if metric.Counter == nil {
			return "", false
		}
		return formatFloat(metric.Counter.GetValue()), true
	case dto.MetricType_GAUGE:
		if metric.Gauge == nil {
			return "", false
		}
		return formatFloat(metric.Gauge.GetValue()), true
	case dto.MetricType_SUMMARY, dto.MetricType_HISTOGRAM, dto.MetricType_GAUGE_HISTOGRAM:
		// Quantiles and buckets do not map onto single sensor values.
		return "", false
	default:
		return formatFloat(metric.GetUntyped().GetValue()), true
	}
}

func formatLabels(metric *dto.Metric) string {
	parts := make([]string, 0, len(metric.GetLabel()))
	for _, pair := range metric.GetLabel() {
		parts = append(parts, fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue()))
	}
	return strings.Join(parts, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// renderSensors serializes values in the "key: value" sensor file format,
// sorted for stable output.
func renderSensors(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(values[k])
		b.WriteString("\n")
	}
	return b.String()
}

// writeAtomic replaces path via a temp file and rename so readers never see
// partial content. World-readable so any sensor consumer can pick it up.
func writeAtomic(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o664); err != nil { //nolint:gosec // sensor data is public
		return fmt.Errorf("failed to write temp sensor file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace sensor file: %w", err)
	}
	return nil
}
