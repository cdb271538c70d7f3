/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Command podtrace is a demo consumer: it wires a real TCP producer
// (dialing an actual address and instrumenting the connect and send
// calls through net.Conn + netfd, the way the teacher's exporter
// examples attach to real connections) alongside a synthetic feed
// that exercises every other producer package this tree implements,
// all funneling into one ring buffer that is drained, logged, and
// exposed as Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/higebu/netfd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/gma1k/podtrace/pkg/cgroup"
	"github.com/gma1k/podtrace/pkg/config"
	"github.com/gma1k/podtrace/pkg/decode/fastcgi"
	"github.com/gma1k/podtrace/pkg/decode/kafka"
	"github.com/gma1k/podtrace/pkg/decode/memcached"
	"github.com/gma1k/podtrace/pkg/decode/redis"
	"github.com/gma1k/podtrace/pkg/pool"
	"github.com/gma1k/podtrace/pkg/probes/db"
	"github.com/gma1k/podtrace/pkg/probes/fs"
	"github.com/gma1k/podtrace/pkg/probes/mem"
	"github.com/gma1k/podtrace/pkg/probes/network"
	"github.com/gma1k/podtrace/pkg/probes/sched"
	"github.com/gma1k/podtrace/pkg/trace"
)

type options struct {
	configPath   string
	listenAddr   string
	demoTarget   string
	ringCapacity int
}

func main() {
	var o options

	root := &cobra.Command{
		Use:   "podtrace",
		Short: "Container-aware kernel tracer demo consumer",
		Long: `podtrace correlates per-thread entry/exit activity, decodes application
protocols, and tracks cgroup utilization, streaming the result as a
structured event feed.

This binary is a demo consumer: it exercises the tracer core's probe
packages directly (standing in for a real eBPF/uprobe attachment
layer) against one real dialed TCP connection plus a synthetic feed
covering the producers a single local demo can't otherwise reach.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	flags := root.Flags()
	flags.StringVar(&o.configPath, "config", "podtrace.yaml", "path to the YAML configuration file")
	flags.StringVar(&o.listenAddr, "listen-addr", ":9464", "address to expose Prometheus metrics on")
	flags.StringVar(&o.demoTarget, "demo-target", "example.com:80", "address to dial for the real TCP producer demo")
	flags.IntVar(&o.ringCapacity, "ring-capacity", 4096, "ring buffer capacity before events are dropped")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		logrus.Fatalf("podtrace: %v", err)
	}
}

func run(ctx context.Context, o options) error {
	if _, err := os.Stat(o.configPath); err != nil {
		logrus.WithField("path", o.configPath).Warn("no configuration file found, using defaults")
		if err := writeDefaultConfig(o.configPath); err != nil {
			logrus.WithError(err).Warn("could not write default configuration, continuing with in-memory defaults")
		}
	}

	watcher, err := config.NewWatcher(o.configPath, func(err error) {
		logrus.WithError(err).Warn("configuration reload failed")
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer watcher.Close()

	ring := trace.NewRing(o.ringCapacity)
	sb := trace.NewSideband(4096)

	prometheus.MustRegister(ring)
	http.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: o.listenAddr}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("metrics server stopped")
		}
	}()

	go consume(ctx, ring, sb)
	go runRealTCPProducer(ctx, ring, sb, o.demoTarget)
	go runSyntheticFeed(ctx, ring, sb, watcher)

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	ring.Close()
	return nil
}

func writeDefaultConfig(path string) error {
	const body = `alert_thresholds:
  warn: 80
  crit: 90
  emerg: 95
target_cgroup_id: 0
grpc_port: 50051
`
	return os.WriteFile(path, []byte(body), 0o644)
}

// consume drains the ring buffer and logs each event, returning its
// scratch slot to the pool once logged — the demo stand-in for
// whatever real collector would resolve stack keys and cgroup/container
// identity downstream.
func consume(ctx context.Context, ring *trace.Ring, sb *trace.Sideband) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ring.Events():
			if !ok {
				return
			}
			fields := logrus.Fields{
				"type":       e.Type,
				"pid":        e.PID,
				"latency_ns": e.LatencyNS,
				"error":      e.Error,
				"bytes":      e.Bytes,
			}
			if e.Target != "" {
				fields["target"] = e.Target
			}
			if e.Details != "" {
				fields["details"] = e.Details
			}
			if e.StackKey != 0 {
				if st, ok := sb.Lookup(e.StackKey); ok {
					fields["stack_depth"] = len(st.IPs)
				}
			}
			logrus.WithFields(fields).Info("event")
			trace.PutScratch(e)
		}
	}
}

// runRealTCPProducer dials o.demoTarget once per interval and
// instruments the connect and first send call through the network
// probe package, extracting the real fd via netfd the way the
// teacher's TCPInfoCollector does for its own connections, then feeds
// that same fd to getsockopt(TCP_INFO) for real retransmit/RTT counts,
// in place of the teacher's own RawTCPInfo/GetRawTCPInfo.
func runRealTCPProducer(ctx context.Context, ring *trace.Ring, sb *trace.Sideband, target string) {
	connectTbl := network.NewConnectTable()
	sendTbl := network.NewSendRecvTable()
	connTargets := network.NewConnTargets()

	pid := uint32(os.Getpid())
	tid := pid

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	dial := func() {
		start := time.Now()
		network.ConnectEntry(connectTbl, pid, tid, uint64(start.UnixNano()))

		dialer := net.Dialer{Timeout: 5 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp4", target)
		now := uint64(time.Now().UnixNano())

		if err != nil {
			network.ConnectExitIPv4(connectTbl, ring, sb, pid, tid, now, -1, 0, 0, nil)
			logrus.WithError(err).WithField("target", target).Warn("demo dial failed")
			return
		}
		defer conn.Close()

		fd := netfd.GetFdFromConn(conn)
		remote, _ := conn.RemoteAddr().(*net.TCPAddr)
		var ip uint32
		var port uint16
		if remote != nil {
			ip4 := remote.IP.To4()
			if ip4 != nil {
				ip = uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
			}
			port = uint16(remote.Port)
		}
		network.ConnectExitIPv4(connectTbl, ring, sb, pid, tid, now, 0, ip, port, nil)

		connTargets.Put(trace.NewThreadKey(pid, tid), network.FormatIPv4Port(ip, port))

		payload := []byte(fmt.Sprintf("HEAD / HTTP/1.0\r\nHost: %s\r\n\r\n", target))
		sendStart := uint64(time.Now().UnixNano())
		network.SendEntry(sendTbl, pid, tid, sendStart)
		n, werr := conn.Write(payload)
		sendNow := uint64(time.Now().UnixNano())
		if werr != nil {
			network.SendExit(sendTbl, connTargets, ring, sb, pid, tid, sendNow, -1, nil)
		} else {
			network.SendExit(sendTbl, connTargets, ring, sb, pid, tid, sendNow, int64(n), nil)
		}

		logFields := logrus.Fields{"fd": fd, "target": target}
		if info, gerr := unix.GetsockoptTCPInfo(fd, unix.IPPROTO_TCP, unix.TCP_INFO); gerr == nil {
			logFields["rtt_us"] = info.Rtt
			logFields["total_retrans"] = info.Total_retrans
			if info.Total_retrans > 0 {
				network.TCPRetransmit(ring, sb, pid, sendNow, ip, port, nil)
			}
		} else {
			logFields["tcpinfo_err"] = gerr
		}
		logrus.WithFields(logFields).Debug("demo connection instrumented")
	}

	dial()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dial()
		}
	}
}

// runSyntheticFeed drives every other producer package with
// representative synthetic calls on a fixed interval, since a single
// demo process won't organically trigger page faults, OOM kills,
// FastCGI requests, or pool exhaustion. Each tick picks one producer
// pseudo-randomly so the metrics/log stream looks like a live system
// rather than a fixed script.
func runSyntheticFeed(ctx context.Context, ring *trace.Ring, sb *trace.Sideband, watcher *config.Watcher) {
	pathTbl := fs.NewPathTable()
	switchTbl := sched.NewSwitchTable()
	lockTbl := sched.NewLockTable()
	queryTbl := db.NewQueryTable()
	poolEng := pool.NewEngine()

	redisTracker := redis.NewTracker()
	mcTracker := memcached.NewTracker()
	fcgiTracker := fastcgi.NewTracker()
	kafkaTopics := kafka.NewTopicNames()
	kafkaProduce := kafka.NewProduceTracker(kafkaTopics)
	kafkaTopicTracker := kafka.NewTopicTracker(kafkaTopics)
	kafkaTopicTracker.NewEntry(1, 1, "orders")
	kafkaTopicTracker.NewExit(1, 1, kafka.TopicHandle(0xbeef))

	cgEngine := cgroup.NewEngine(watcher.Current().AlertThresholds)
	cgroupID := uint64(12345)

	cgVersion, cgMount, err := cgroup.Detect()
	if err != nil {
		logrus.WithError(err).Warn("cgroup detection failed, synthetic feed will use demo usage/limit values")
	} else {
		logrus.WithField("hierarchy", cgMount).Infof("detected %s", cgVersion)
	}
	cgPath, err := cgroup.SelfPath(cgVersion, int(trace.ResourceCPU))
	if err != nil {
		logrus.WithError(err).Warn("resolving own cgroup path failed, synthetic feed will use demo usage/limit values")
		cgPath = ""
	}

	grpcMethods := network.NewGRPCMethods()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	pid, tid := uint32(100), uint32(100)

	producers := []func(nowNS uint64){
		func(nowNS uint64) {
			fs.ReadEntry(pathTbl, pid, tid, nowNS, "/var/log/app.log")
			fs.ReadExit(pathTbl, ring, sb, pid, tid, nowNS+2_000_000, 4096, nil)
		},
		func(nowNS uint64) {
			sched.SchedSwitch(switchTbl, ring, sb, nowNS, pid, pid+1, nil)
		},
		func(nowNS uint64) {
			sched.FutexEntry(lockTbl, pid, tid, nowNS, 0x7f0000001000)
			sched.FutexExit(lockTbl, ring, sb, pid, tid, nowNS+1_500_000, 0, nil)
		},
		func(nowNS uint64) {
			mem.PageFault(ring, sb, nowNS, pid, 0, nil)
		},
		func(nowNS uint64) {
			db.QueryEntry(queryTbl, pid, tid, nowNS, "SELECT * FROM users WHERE id = ?")
			db.QueryExit(queryTbl, ring, sb, pid, tid, nowNS+3_000_000, 0, nil)
		},
		func(nowNS uint64) {
			poolEng.Acquire(ring, pid, tid, nowNS, trace.PoolPostgreSQL)
			poolEng.CheckExhaustion(ring, pid, tid, nowNS+12_000_000)
			poolEng.Release(ring, pid, tid, nowNS+15_000_000)
		},
		func(nowNS uint64) {
			redisTracker.Entry(pid, tid, nowNS, redis.CommandFromFormat("GET %s"))
			redisTracker.Exit(ring, sb, pid, tid, nowNS+500_000, 1, "010.000.000.005:06379", nil)
		},
		func(nowNS uint64) {
			mcTracker.SetEntry(pid, tid, nowNS, "session:7", 256)
			mcTracker.Exit(ring, sb, pid, tid, nowNS+400_000, 0, nil)
		},
		func(nowNS uint64) {
			logrus.WithField("correlation_id", xid.New().String()).Debug("synthetic FastCGI request")
			params := []byte("REQUEST_URI/widgets/1REQUEST_METHODGET")
			hdr := fastcgi.Header{Version: 1, Type: 4, RequestID: uint16(rng.Intn(1000)), ContentLength: uint16(len(params))}
			fcgiTracker.Request(ring, pid, tid, nowNS, hdr, params)
			endHdr := fastcgi.Header{Version: 1, Type: 3, RequestID: hdr.RequestID}
			fcgiTracker.Response(ring, sb, pid, tid, nowNS+12_000_000, endHdr, []byte{0, 0, 0, 200, 0, 0, 0, 0}, nil)
		},
		func(nowNS uint64) {
			kafkaProduce.ProduceEntry(pid, tid, nowNS, kafka.TopicHandle(0xbeef), 128)
			kafkaProduce.ProduceExit(ring, sb, pid, tid, nowNS+1_000_000, 0, nil)
		},
		func(nowNS uint64) {
			buf := make([]byte, 9)
			buf[3] = 0x1
			buf = append(buf, []byte("/Greeter/SayHello:")...)
			network.GRPCSendEntry(grpcMethods, pid, tid, 50051, 50051, buf)
			sendTbl := network.NewSendRecvTable()
			targets := network.NewConnTargets()
			network.SendEntry(sendTbl, pid, tid, nowNS)
			network.SendExitGRPC(sendTbl, targets, grpcMethods, ring, sb, pid, tid, nowNS+800_000, 32, nil)
		},
		func(nowNS uint64) {
			limit, usage := uint64(1000), uint64(950)
			if cgPath != "" {
				if l, u, err := cgroup.ReadLimitUsage(cgVersion, cgPath, int(trace.ResourceCPU)); err == nil {
					limit, usage = l, u
				}
			}
			cgEngine.Evaluate(ring, nowNS, cgroupID, trace.ResourceCPU, usage, limit)
		},
	}

	lastThresholds := watcher.Current().AlertThresholds

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cfg := watcher.Current(); cfg.AlertThresholds != lastThresholds {
				lastThresholds = cfg.AlertThresholds
				cgEngine = cgroup.NewEngine(cfg.AlertThresholds)
			}
			nowNS := uint64(time.Now().UnixNano())
			producers[rng.Intn(len(producers))](nowNS)
		}
	}
}

