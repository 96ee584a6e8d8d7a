package backtest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartBackground    = "#060c1b"
	chartTextPrimary   = "#eceff4"
	chartTextSecondary = "#9ca3af"
	chartEquityColor   = "#34d399"
	chartPriceColor    = "#3b82f6"
)

// RenderEquityChart 渲染资金曲线页面：左轴组合价值、右轴收盘价。
func RenderEquityChart(w io.Writer, title string, equity []EquitySample) error {
	if len(equity) == 0 {
		return fmt.Errorf("资金曲线为空")
	}

	xAxis := make([]string, 0, len(equity))
	values := make([]opts.LineData, 0, len(equity))
	prices := make([]opts.LineData, 0, len(equity))
	for _, s := range equity {
		xAxis = append(xAxis, time.UnixMilli(s.Timestamp).UTC().Format("2006-01-02 15:04"))
		values = append(values, opts.LineData{Value: s.Value})
		prices = append(prices, opts.LineData{Value: s.Price})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           "1280px",
			Height:          "640px",
			BackgroundColor: chartBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      title,
			Left:       "center",
			TitleStyle: &opts.TextStyle{Color: chartTextPrimary, FontSize: 18},
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Top:       "32",
			TextStyle: &opts.TextStyle{Color: chartTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Color: chartTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "组合价值",
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: chartTextSecondary},
			SplitLine: &opts.SplitLine{
				Show:      opts.Bool(true),
				LineStyle: &opts.LineStyle{Color: chartTextSecondary, Opacity: opts.Float(0.2)},
			},
		}),
	)
	line.ExtendYAxis(opts.YAxis{
		Name:      "收盘价",
		Scale:     opts.Bool(true),
		AxisLabel: &opts.AxisLabel{Color: chartTextSecondary},
		SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
	})

	line.SetXAxis(xAxis)
	line.AddSeries("组合价值", values,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: chartEquityColor, Width: 2}),
	)
	line.AddSeries("收盘价", prices,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), YAxisIndex: 1}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: chartPriceColor, Width: 1}),
	)

	return line.Render(w)
}

// WriteEquityChartHTML 将资金曲线页面写入文件（run 模式导出使用）。
func WriteEquityChartHTML(path, title string, equity []EquitySample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return RenderEquityChart(f, title, equity)
}
