package config

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"connprobe/internal/errfmt"
)

// fetchTimeout 拉取远程endpoints文件的超时
const fetchTimeout = 30 * time.Second

// fetchHTTP 从远程URL拉取endpoints文件
func fetchHTTP(url string) ([]byte, error) {
	client := &http.Client{
		Timeout: fetchTimeout,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, errfmt.Wrap(errfmt.KindConfiguration, "请求远程endpoints文件失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errfmt.Newf(errfmt.KindConfiguration,
			"远程endpoints文件HTTP状态错误: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errfmt.Wrap(errfmt.KindConfiguration, "读取远程endpoints文件失败", err)
	}

	return raw, nil
}

// fetchS3 从S3对象拉取endpoints文件
//
// source形如 s3://bucket/path/endpoints.json，凭证走默认链
// （环境变量、共享凭证文件或实例角色）。
func fetchS3(source string) ([]byte, error) {
	bucket, key, err := splitS3(source)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errfmt.Wrap(errfmt.KindConfiguration, "加载AWS凭证失败", err)
	}

	client := s3.NewFromConfig(awsCfg)
	object, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errfmt.Wrap(errfmt.KindConfiguration, "拉取S3对象失败", err)
	}
	defer object.Body.Close()

	raw, err := io.ReadAll(object.Body)
	if err != nil {
		return nil, errfmt.Wrap(errfmt.KindConfiguration, "读取S3对象失败", err)
	}

	return raw, nil
}

// splitS3 拆分 s3://bucket/key 形式的地址
func splitS3(source string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(source, "s3://")

	bucket, key, found := strings.Cut(trimmed, "/")
	if !found || bucket == "" || key == "" {
		return "", "", errfmt.Newf(errfmt.KindConfiguration,
			"S3地址应形如 s3://bucket/key: %q", source)
	}

	return bucket, key, nil
}
