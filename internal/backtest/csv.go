package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"kairos/internal/market"
)

var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// LoadCSV 从 CSV 读入 OHLCV 序列。列名大小写不敏感，
// 必须包含 open/high/low/close/volume，时间列接受 timestamp 或 date
//（RFC3339、常见日期格式或 Unix 秒/毫秒）。输出按时间升序。
func LoadCSV(path string) ([]market.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 CSV 失败: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV 与 LoadCSV 相同，但从任意 reader 读取。
func ReadCSV(r io.Reader) ([]market.Candle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"open", "high", "low", "close", "volume"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV 缺少必需列: %s", required)
		}
	}
	timeIdx, hasTime := cols["timestamp"]
	if !hasTime {
		timeIdx, hasTime = cols["date"]
	}
	if !hasTime {
		return nil, fmt.Errorf("CSV 缺少时间列（timestamp 或 date）")
	}

	var candles []market.Candle
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("第 %d 行读取失败: %w", line, err)
		}
		line++
		ts, err := parseCSVTime(record[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("第 %d 行时间非法: %w", line, err)
		}
		c := market.Candle{OpenTime: ts, CloseTime: ts}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"open", &c.Open},
			{"high", &c.High},
			{"low", &c.Low},
			{"close", &c.Close},
			{"volume", &c.Volume},
		} {
			v, err := parseCSVFloat(record[cols[field.name]])
			if err != nil {
				return nil, fmt.Errorf("第 %d 行 %s 非法: %w", line, field.name, err)
			}
			*field.dst = v
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].OpenTime < candles[j].OpenTime })
	if err := market.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("CSV 数据校验失败: %w", err)
	}
	return candles, nil
}

func parseCSVFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseCSVTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("时间为空")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// 13 位按毫秒、10 位按秒处理
		if n > 1e12 {
			return n, nil
		}
		return n * 1000, nil
	}
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("无法解析时间: %s", s)
}

// WriteTradesCSV 导出成交流水。
func WriteTradesCSV(trades []Trade, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "action", "price", "pnl"}); err != nil {
		return err
	}
	for _, t := range trades {
		if err := w.Write([]string{
			strconv.FormatInt(t.Timestamp, 10),
			t.Action,
			formatF(t.Price),
			formatF(t.PnL),
		}); err != nil {
			return err
		}
	}
	return nil
}

// WriteEquityCSV 导出资金曲线。
func WriteEquityCSV(samples []EquitySample, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "value", "price"}); err != nil {
		return err
	}
	for _, s := range samples {
		if err := w.Write([]string{
			strconv.FormatInt(s.Timestamp, 10),
			formatF(s.Value),
			formatF(s.Price),
		}); err != nil {
			return err
		}
	}
	return nil
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
