package domain

// RssiSample 单次抽查采样
// 由学生端周期性上报；Missed 表示该次抽查未收到读数（应用被杀或已离场）
type RssiSample struct {
	RSSI      float64 `json:"rssi"`
	HasMotion bool    `json:"hasMotion"`
	Missed    bool    `json:"missed"`
	Timestamp int64   `json:"timestamp,omitempty"` // Unix 秒，可选
}

// RssiStream 每 (student, class, day) 一条的采样流
// 仅追加写入；分析时整体读取
type RssiStream struct {
	StudentID   string       `json:"studentId"`
	ClassID     string       `json:"classId"`
	SessionDate string       `json:"sessionDate"`
	Samples     []RssiSample `json:"samples"`
}

// SplitSamples 按 Missed 拆分为有效采样与漏报计数
func SplitSamples(samples []RssiSample) (valid []RssiSample, missed int) {
	for _, s := range samples {
		if s.Missed {
			missed++
		} else {
			valid = append(valid, s)
		}
	}
	return valid, missed
}

// SampleValues 提取有效采样的 RSSI 序列
func SampleValues(samples []RssiSample) []float64 {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		values = append(values, s.RSSI)
	}
	return values
}
