package repository

import (
	"context"

	"github.com/Avyoraj/Attend-Fresh/internal/domain"
)

// StudentsRepository 学生Repository接口
// 设备绑定是并发敏感操作：BindDevice 必须是条件更新（仅未绑定时写入），
// 竞争失败方会在后续的不匹配检查中观察到胜者的绑定
type StudentsRepository interface {
	// GetStudent 按学号查询；不存在时返回 (nil, nil)
	GetStudent(ctx context.Context, studentID string) (*domain.Student, error)
	// BindDevice 条件绑定：仅当前未绑定设备时写入，返回是否绑定成功
	// 学生行不存在时创建并绑定
	BindDevice(ctx context.Context, studentID, deviceID string) (bool, error)
	// ResetDevice 清除设备绑定（教师操作）
	ResetDevice(ctx context.Context, studentID string) error
}
