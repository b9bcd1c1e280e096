package dump

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Escape renders a scanned database value as a SQL literal.
func Escape(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case string:
		return fmt.Sprintf("'%s'", strings.ReplaceAll(v, "'", "''")), nil
	case []byte:
		return fmt.Sprintf("X'%s'", hex.EncodeToString(v)), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case time.Time:
		return v.UTC().Format("'2006-01-02 15:04:05'"), nil
	}
	return "", fmt.Errorf("unsupported value type %T", value)
}
