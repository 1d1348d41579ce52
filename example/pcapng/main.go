// Command pcapng-driver demonstrates the codec end to end: it loads
// its settings with gconfig, logs through glog, writes a small capture
// with one interface and a few packets, then reads it back.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sofiworker/gopcapng"
	"github.com/sofiworker/gopcapng/gconfig"
	"github.com/sofiworker/gopcapng/glog"
)

type driverLogger struct{ *glog.Logger }

func main() {
	cfg, err := gconfig.New(gconfig.WithName("pcapng-driver"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "gconfig:", err)
		os.Exit(1)
	}
	settings, err := cfg.Unmarshal()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gconfig:", err)
		os.Exit(1)
	}

	logCfg := glog.DefaultConfig()
	if settings.LogFile != "" {
		logCfg.FilePaths = []string{settings.LogFile}
	}
	if err := glog.Configure(logCfg); err != nil {
		fmt.Fprintln(os.Stderr, "glog:", err)
		os.Exit(1)
	}
	logger := driverLogger{glog.Default()}

	var buf bytes.Buffer
	if err := writeSample(&buf, settings.DefaultUnitsPerSecond); err != nil {
		logger.Errorf("write sample capture: %v", err)
		os.Exit(1)
	}

	if err := readSample(&buf, settings.MaxBlockSize, logger); err != nil {
		logger.Errorf("read sample capture: %v", err)
		os.Exit(1)
	}
}

func writeSample(w *bytes.Buffer, unitsPerSecond uint64) error {
	writer, err := pcapng.NewWriter(w,
		pcapng.WithSectionUserApplication("pcapng-driver"),
		pcapng.WithDefaultTimestampResolution(unitsPerSecond),
	)
	if err != nil {
		return err
	}

	ifaceID, err := writer.AddInterface(1, 262144,
		pcapng.WithInterfaceName("eth0"),
		pcapng.WithInterfaceDescription("sample capture interface"),
	)
	if err != nil {
		return err
	}

	for i := 0; i < 3; i++ {
		pkt := &pcapng.Packet{
			InterfaceID:  ifaceID,
			Seconds:      1700000000 + int64(i),
			Nanoseconds:  0,
			HasTimestamp: true,
			Data:         []byte{0xAA, 0xBB, 0xCC, byte(i)},
		}
		if err := writer.WritePacket(pkt); err != nil {
			return err
		}
	}

	stats := &pcapng.InterfaceStatistics{
		InterfaceID: ifaceID,
		IfRecv:      3,
		HasIfRecv:   true,
	}
	if err := writer.WriteInterfaceStatistics(stats); err != nil {
		return err
	}

	return writer.Close()
}

func readSample(r *bytes.Buffer, maxBlockSize uint32, logger pcapng.Logger) error {
	stream, ok := pcapng.Probe(r)
	if !ok {
		return pcapng.ErrNotPcapng
	}

	reader := pcapng.NewReader(stream,
		pcapng.WithMaxBlockSize(maxBlockSize),
		pcapng.WithReaderLogger(logger),
	)

	for {
		block, err := reader.NextBlock()
		if err != nil {
			break
		}
		switch b := block.(type) {
		case *pcapng.Section:
			logger.Infof("section: version %d.%d", b.VersionMajor, b.VersionMinor)
		case *pcapng.Interface:
			logger.Infof("interface: %s (link type %d)", b.Name, b.LinkType)
		case *pcapng.Packet:
			logger.Infof("packet: %d bytes captured of %d", b.CapturedLen, b.OriginalLen)
		case *pcapng.InterfaceStatistics:
			logger.Infof("stats: if_recv=%d", b.IfRecv)
		}
	}
	return nil
}
