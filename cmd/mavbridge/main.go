package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mavcodec/dialect"
	"mavcodec/internal/config"
	"mavcodec/internal/mavlog"
	"mavcodec/internal/serialport"
	"mavcodec/internal/udpsink"
	"mavcodec/mavlink"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	catalog, err := loadCatalog(cfg.Dialect.Paths)
	if err != nil {
		log.Fatalf("dialect load failed: %v", err)
	}

	proto := mavlink.V1
	if cfg.Link.Protocol == "v2" {
		proto = mavlink.V2
	}
	ch := mavlink.New(mavlink.Options{
		Catalog:     catalog,
		Protocol:    proto,
		SystemID:    cfg.Link.SystemID,
		ComponentID: cfg.Link.ComponentID,
	})

	if cfg.Link.SigningKeyPath != "" {
		key, err := os.ReadFile(cfg.Link.SigningKeyPath)
		if err != nil {
			log.Fatalf("signing key load failed: %v", err)
		}
		ch.ConfigureSigning(key, cfg.Link.LinkID, nil)
	}

	sink, err := udpsink.NewBroadcaster(cfg.UDP.Dest)
	if err != nil {
		log.Fatalf("udp broadcaster init failed: %v", err)
	}
	defer sink.Close()

	var recorder *mavlog.Writer
	if cfg.Record.Enable {
		recorder, err = mavlog.CreateWriter(cfg.Record.Path)
		if err != nil {
			log.Fatalf("record log init failed: %v", err)
		}
		defer recorder.Close()
	}

	log.Printf("mavbridge starting: protocol=%s udp-dest=%s", proto, cfg.UDP.Dest)

	onFrame := func(frame []byte) {
		for _, ev := range ch.Feed(frame) {
			if ev.Err != nil {
				log.Printf("decode error: %v", ev.Err)
				continue
			}
			log.Printf("decoded %s (sysid=%d compid=%d)", ev.Record.MessageName, ev.Record.SystemID, ev.Record.ComponentID)
		}
		if err := sink.Send(frame); err != nil {
			log.Printf("udp send error: %v", err)
		}
		if recorder != nil {
			if err := recorder.WriteFrame(time.Now(), frame); err != nil {
				log.Printf("record write error: %v", err)
			}
			if err := recorder.Flush(); err != nil {
				log.Printf("record flush error: %v", err)
			}
		}
	}

	switch {
	case cfg.Replay.Enable:
		runReplay(ctx, cfg.Replay.Path, cfg.Replay.Speed, cfg.Replay.Loop, onFrame)
	case cfg.Serial.Enable:
		runSerial(ctx, cfg.Serial.Device, onFrame)
	}

	log.Printf("mavbridge stopping")
}

func loadCatalog(paths []string) (*dialect.Catalog, error) {
	readers := make([]io.Reader, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		readers = append(readers, bytes.NewReader(b))
	}
	res, err := dialect.Load(readers...)
	if err != nil {
		return nil, err
	}
	for _, rerr := range res.Errors {
		log.Printf("dialect: recoverable load error: %v", rerr)
	}
	return res.Catalog, nil
}

func runReplay(ctx context.Context, path string, speed float64, loop bool, onFrame func([]byte)) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("replay open failed: %v", err)
	}
	defer f.Close()

	recs, err := mavlog.NewReader(f).ReadAll()
	if err != nil {
		log.Fatalf("replay read failed: %v", err)
	}

	err = mavlog.Play(recs, speed, loop, nil, func(frame []byte) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onFrame(frame)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("replay stopped: %v", err)
	}
}

func runSerial(ctx context.Context, device string, onFrame func([]byte)) {
	f, err := serialport.Open(device, 57600)
	if err != nil {
		log.Fatalf("serial open failed: %v", err)
	}
	defer f.Close()

	go func() {
		<-ctx.Done()
		f.Close()
	}()

	buf := make([]byte, 1024)
	for ctx.Err() == nil {
		n, err := f.Read(buf)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("serial read stopped: %v", err)
			}
			return
		}
		onFrame(buf[:n])
	}
}
