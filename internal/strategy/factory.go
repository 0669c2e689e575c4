package strategy

import (
	"fmt"

	"github.com/assist-by/pairs/internal/domain"
)

// CreateModelFromConfig는 페어 설정에 맞는 모델을 생성합니다.
// 모델 이름이나 파라미터가 지원되지 않으면 Unsupported 모델과 에러를 함께 반환하므로
// 호출자는 에러를 기록하고 페어를 비활성 처리하면 됩니다.
func CreateModelFromConfig(registry *Registry, cfg domain.PairConfig) (Model, error) {
	model, err := registry.Create(cfg.Model, cfg.ModelParams)
	if err != nil {
		return NewUnsupported(cfg.Model), fmt.Errorf("페어 %s 모델 생성 실패: %w", cfg.ID, err)
	}
	return model, nil
}
