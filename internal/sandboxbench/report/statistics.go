package report

import (
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histogramMin     = 1
	histogramMax     = int64(time.Hour / time.Microsecond)
	histogramSigFigs = 3
	microsPerSecond  = float64(time.Second / time.Microsecond)
	nanosPerSecond   = float64(time.Second)
)

func statistics(durations []time.Duration) *Statistics {
	durationsInt64 := extractDuration(durations)
	hist := hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
	for _, d := range durations {
		micros := d.Microseconds()
		if micros < histogramMin {
			micros = histogramMin
		} else if micros > histogramMax {
			micros = histogramMax
		}
		// Values are clamped into range so recording cannot fail.
		_ = hist.RecordValue(micros)
	}
	stats := &Statistics{
		Count:             len(durations),
		Min:               float64(minInt64(durationsInt64)) / nanosPerSecond,
		Max:               float64(maxInt64(durationsInt64)) / nanosPerSecond,
		Average:           avgInt64(durationsInt64) / nanosPerSecond,
		StandardDeviation: standardDeviationInt64(durationsInt64) / nanosPerSecond,
	}
	if len(durations) > 0 {
		stats.P50 = float64(hist.ValueAtQuantile(50)) / microsPerSecond
		stats.P95 = float64(hist.ValueAtQuantile(95)) / microsPerSecond
		stats.P99 = float64(hist.ValueAtQuantile(99)) / microsPerSecond
	}
	return stats
}

func extractDuration(input []time.Duration) []int64 {
	output := make([]int64, 0, len(input))
	for _, d := range input {
		output = append(output, int64(d))
	}
	return output
}

func minInt64(input []int64) int64 {
	var m int64
	for i, e := range input {
		if i == 0 || e < m {
			m = e
		}
	}
	return m
}

func maxInt64(input []int64) int64 {
	var m int64
	for i, e := range input {
		if i == 0 || e > m {
			m = e
		}
	}
	return m
}

func avgInt64(input []int64) float64 {
	num := len(input)
	if num == 0 {
		return 0
	}
	var sum float64
	for _, e := range input {
		sum += float64(e)
	}
	return sum / float64(num)
}

func varianceInt64(numbers []int64) float64 {
	if len(numbers) < 2 {
		return 0
	}
	var total float64
	avg := avgInt64(numbers)
	for _, number := range numbers {
		total += math.Pow(float64(number)-avg, 2)
	}
	return total / float64(len(numbers)-1)
}

func standardDeviationInt64(numbers []int64) float64 {
	return math.Sqrt(varianceInt64(numbers))
}
