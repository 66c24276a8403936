package detector

import "math"

// Pearson 计算两条序列对齐前缀上的 Pearson 相关系数
//
// 序列先对齐到 length = min(len(x), len(y))；对齐长度不足 minLen 时
// 返回 ok=false（数据不足，跳过该次对比）。任一序列方差为零时分母
// 为 0，结果定义为 0（无相关），不会产生 NaN 或除零。
func Pearson(x, y []float64, minLen int) (float64, bool) {
	length := len(x)
	if len(y) < length {
		length = len(y)
	}
	if length < minLen {
		return 0, false
	}

	x = x[:length]
	y = y[:length]

	var muX, muY float64
	for i := 0; i < length; i++ {
		muX += x[i]
		muY += y[i]
	}
	muX /= float64(length)
	muY /= float64(length)

	var numerator, sumSqX, sumSqY float64
	for i := 0; i < length; i++ {
		diffX := x[i] - muX
		diffY := y[i] - muY
		numerator += diffX * diffY
		sumSqX += diffX * diffX
		sumSqY += diffY * diffY
	}

	denominator := math.Sqrt(sumSqX * sumSqY)
	if denominator == 0 {
		return 0, true
	}
	return numerator / denominator, true
}

// Jitter 信号抖动：相邻读数绝对差的均值
// 序列长度不足 2 时为 0。近零抖动说明设备处于静置状态
func Jitter(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(values); i++ {
		sum += math.Abs(values[i] - values[i-1])
	}
	return sum / float64(len(values)-1)
}

// Variance 样本方差（总体方差，分母为 n）
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mu float64
	for _, v := range values {
		mu += v
	}
	mu /= float64(len(values))

	var sum float64
	for _, v := range values {
		diff := v - mu
		sum += diff * diff
	}
	return sum / float64(len(values))
}
