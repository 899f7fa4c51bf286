package probe

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/microsoft/go-mssqldb" // 注册sqlserver驱动

	"connprobe/internal/dsn"
	"connprobe/internal/errfmt"
)

// MSSQLChecker SQL Server连接检测器
type MSSQLChecker struct{}

// NewMSSQLChecker 创建SQL Server检测器
func NewMSSQLChecker() *MSSQLChecker {
	return &MSSQLChecker{}
}

// Check 尝试建立SQL Server连接，建立成功即视为通过，不执行任何查询
//
// 连接串先注入固定连接超时，端点声明ignoreSslErrors时再注入
// trustservercertificate。连接句柄为本次调用独占，任何退出路径都释放。
func (c *MSSQLChecker) Check(ctx context.Context, endpoint Endpoint) *Result {
	timeoutSeconds := int(sqlConnectTimeout / time.Second)

	connStr, err := dsn.AugmentMSSQL(endpoint.ConnectionString, timeoutSeconds, endpoint.IgnoreSSLErrors)
	if err != nil {
		return failureFrom(err)
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return failureFrom(errfmt.Wrap(errfmt.KindMalformedConnectionString,
			"SQL Server驱动无法解析连接串", err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, sqlConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return failureFrom(errfmt.Wrap(errfmt.KindConnectionFailure,
			"建立SQL Server连接失败", err))
	}

	return success()
}
