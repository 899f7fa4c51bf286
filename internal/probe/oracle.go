package probe

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/sijms/go-ora/v2" // 注册oracle驱动

	"connprobe/internal/dsn"
	"connprobe/internal/errfmt"
)

// OracleChecker Oracle连接检测器
//
// 该方言的驱动不提供证书信任开关，端点的ignoreSslErrors对其不生效。
type OracleChecker struct{}

// NewOracleChecker 创建Oracle检测器
func NewOracleChecker() *OracleChecker {
	return &OracleChecker{}
}

// Check 尝试建立Oracle连接，建立成功即视为通过，不执行任何查询
func (c *OracleChecker) Check(ctx context.Context, endpoint Endpoint) *Result {
	timeoutSeconds := int(sqlConnectTimeout / time.Second)

	connStr, err := dsn.AugmentOracle(endpoint.ConnectionString, timeoutSeconds)
	if err != nil {
		return failureFrom(err)
	}

	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return failureFrom(errfmt.Wrap(errfmt.KindMalformedConnectionString,
			"Oracle驱动无法解析连接串", err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, sqlConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return failureFrom(errfmt.Wrap(errfmt.KindConnectionFailure,
			"建立Oracle连接失败", err))
	}

	return success()
}
