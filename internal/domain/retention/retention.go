// Пакет retention — правила срока хранения архивов.
package retention

import (
	"fmt"
	"strings"
	"time"
)

// ComputeExpiration возвращает createdAt + retentionDays календарных дней (UTC).
func ComputeExpiration(createdAt time.Time, retentionDays int) time.Time {
	return createdAt.UTC().AddDate(0, 0, retentionDays)
}

// PolicyName формирует имя политики хранения: "<category>_<days>d".
func PolicyName(category string, retentionDays int) string {
	return fmt.Sprintf("%s_%dd", strings.ToLower(category), retentionDays)
}
