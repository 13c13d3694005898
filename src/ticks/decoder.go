package ticks

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fx-agent/src/config"
	"fx-agent/src/helpers"
	"fx-agent/src/logger"
	"fx-agent/src/metrics"
	"fx-agent/src/models"

	"github.com/shopspring/decimal"
	"github.com/ulikunitz/xz/lzma"
)

// RecordSize is the width of one big-endian tick record:
// ms offset (u32), ask (u32), bid (u32), ask volume (f32), bid volume (f32).
const RecordSize = 20

// -----------------------------------------------------------------------------

// Decoder turns hourly tick buffers into ticks.
type Decoder struct {
	Config *models.MConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewDecoder(cfg *models.MConfig, log *logger.Logger) *Decoder {
	return &Decoder{Config: cfg, Logger: log}
}

// -----------------------------------------------------------------------------

// Decode parses a raw (decompressed) buffer covering the hour starting at
// hourStart. A trailing partial record is dropped. An empty buffer yields an
// empty slice and a warning. Record order is preserved as found.
func (d *Decoder) Decode(pair string, buf []byte, hourStart time.Time, scale int64) []models.MTick {
	if len(buf) < RecordSize {
		d.Logger.Warning("Tick buffer for %s %s holds no complete record (%d bytes)",
			pair, hourStart.UTC().Format(time.RFC3339), len(buf))
		metrics.MalformedBuffers.WithLabelValues(pair).Inc()
		return []models.MTick{}
	}
	if scale <= 0 {
		d.Logger.Warning("Invalid price scale %d for %s, buffer skipped", scale, pair)
		metrics.MalformedBuffers.WithLabelValues(pair).Inc()
		return []models.MTick{}
	}

	divisor := decimal.NewFromInt(scale)
	base := hourStart.UTC()
	n := len(buf) / RecordSize
	out := make([]models.MTick, 0, n)

	for i := 0; i < n; i++ {
		rec := buf[i*RecordSize : (i+1)*RecordSize]
		ms := binary.BigEndian.Uint32(rec[0:4])
		ask := binary.BigEndian.Uint32(rec[4:8])
		bid := binary.BigEndian.Uint32(rec[8:12])
		askVol := math.Float32frombits(binary.BigEndian.Uint32(rec[12:16]))
		bidVol := math.Float32frombits(binary.BigEndian.Uint32(rec[16:20]))

		out = append(out, models.MTick{
			Timestamp: base.Add(time.Duration(ms) * time.Millisecond),
			Ask:       decimal.NewFromInt(int64(ask)).Div(divisor).InexactFloat64(),
			Bid:       decimal.NewFromInt(int64(bid)).Div(divisor).InexactFloat64(),
			AskVolume: float64(askVol),
			BidVolume: float64(bidVol),
		})
	}

	metrics.TicksDecoded.WithLabelValues(pair).Add(float64(len(out)))
	return out
}

// -----------------------------------------------------------------------------

// DecodeFile reads one LZMA-compressed hourly file. The hour is taken from the
// path. Any read or decompression failure is logged and yields no ticks.
func (d *Decoder) DecodeFile(pair string, path string) []models.MTick {
	hour, err := ParseHourPath(path)
	if err != nil {
		d.Logger.Warning("Skipping %s: %v", path, err)
		return []models.MTick{}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		d.Logger.Warning("Failed to read tick file %s: %v", path, err)
		return []models.MTick{}
	}

	buf, err := Decompress(raw)
	if err != nil {
		d.Logger.Warning("Failed to decompress tick file %s: %v", path, err)
		metrics.MalformedBuffers.WithLabelValues(pair).Inc()
		return []models.MTick{}
	}

	return d.Decode(pair, buf, hour, config.PriceScale(d.Config, pair))
}

// -----------------------------------------------------------------------------

// Decompress inflates an LZMA-alone stream. Zero-length input is an error.
func Decompress(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, helpers.NewMalformedInput(nil, "empty tick file")
	}
	r, err := lzma.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, helpers.NewMalformedInput(err, "invalid lzma header")
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		// A truncated stream still yields whatever records were inflated.
		if len(buf) >= RecordSize {
			return buf, nil
		}
		return nil, helpers.NewMalformedInput(err, "lzma stream")
	}
	return buf, nil
}

// -----------------------------------------------------------------------------

// Encode is the inverse of Decode, used to produce fixtures and re-packed files.
func Encode(ticks []models.MTick, hourStart time.Time, scale int64) []byte {
	buf := make([]byte, len(ticks)*RecordSize)
	for i, t := range ticks {
		rec := buf[i*RecordSize : (i+1)*RecordSize]
		ms := t.Timestamp.Sub(hourStart.UTC()) / time.Millisecond
		binary.BigEndian.PutUint32(rec[0:4], uint32(ms))
		binary.BigEndian.PutUint32(rec[4:8], uint32(decimal.NewFromFloat(t.Ask).Mul(decimal.NewFromInt(scale)).Round(0).IntPart()))
		binary.BigEndian.PutUint32(rec[8:12], uint32(decimal.NewFromFloat(t.Bid).Mul(decimal.NewFromInt(scale)).Round(0).IntPart()))
		binary.BigEndian.PutUint32(rec[12:16], math.Float32bits(float32(t.AskVolume)))
		binary.BigEndian.PutUint32(rec[16:20], math.Float32bits(float32(t.BidVolume)))
	}
	return buf
}

// Compress wraps a raw buffer in an LZMA-alone stream.
func Compress(buf []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := lzma.NewWriter(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to create lzma writer: %w", err)
	}
	if _, err := w.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to compress ticks: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close lzma writer: %w", err)
	}
	return out.Bytes(), nil
}

// -----------------------------------------------------------------------------

// ParseHourPath extracts the hour start from .../<YYYY>/<MM0>/<DD>/<HH>h_ticks.bi5.
func ParseHourPath(path string) (time.Time, error) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	if len(parts) < 4 {
		return time.Time{}, fmt.Errorf("unexpected tick path %q", path)
	}
	parts = parts[len(parts)-4:]

	name := parts[3]
	if !strings.HasSuffix(name, "h_ticks.bi5") {
		return time.Time{}, fmt.Errorf("unexpected tick file name %q", name)
	}

	nums := make([]int, 4)
	fields := []string{parts[0], parts[1], parts[2], strings.TrimSuffix(name, "h_ticks.bi5")}
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return time.Time{}, fmt.Errorf("unexpected tick path %q: %w", path, err)
		}
		nums[i] = v
	}

	year, month0, day, hour := nums[0], nums[1], nums[2], nums[3]
	if month0 < 0 || month0 > 11 || day < 1 || day > 31 || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("tick path %q out of range", path)
	}
	return time.Date(year, time.Month(month0+1), day, hour, 0, 0, 0, time.UTC), nil
}
