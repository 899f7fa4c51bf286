package config

import (
	"encoding/json"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"connprobe/internal/errfmt"
	"connprobe/internal/probe"
)

// endpointFile endpoints文件的顶层结构
type endpointFile struct {
	Endpoints []probe.Endpoint `json:"endpoints" yaml:"endpoints"`
}

// loadEndpoints 读取并校验端点列表
//
// 文件缺失、无法解析或端点定义不合法都是启动阶段的致命配置错误。
// 空端点列表是合法的，外层据此渲染占位提示。
func loadEndpoints(source string) ([]probe.Endpoint, error) {
	raw, err := fetch(source)
	if err != nil {
		return nil, err
	}

	var file endpointFile
	if isYAML(source) {
		err = yaml.Unmarshal(raw, &file)
	} else {
		err = json.Unmarshal(raw, &file)
	}
	if err != nil {
		return nil, errfmt.Wrap(errfmt.KindConfiguration, "解析endpoints文件失败", err)
	}

	if err := validateEndpoints(file.Endpoints); err != nil {
		return nil, err
	}

	return file.Endpoints, nil
}

// validateEndpoints 校验端点定义
func validateEndpoints(endpoints []probe.Endpoint) error {
	for i, endpoint := range endpoints {
		if strings.TrimSpace(endpoint.Name) == "" {
			return errfmt.Newf(errfmt.KindConfiguration,
				"第 %d 个端点缺少name", i+1)
		}
		if endpoint.ConnectionString == "" {
			return errfmt.Newf(errfmt.KindConfiguration,
				"端点 %s 缺少connectionString", endpoint.Name)
		}
		if _, ok := probe.ParseKind(endpoint.Type); !ok {
			return errfmt.Newf(errfmt.KindConfiguration,
				"端点 %s 的connectionType无法识别: %q", endpoint.Name, endpoint.Type)
		}
	}
	return nil
}

// fetch 按source前缀选择读取方式
func fetch(source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return fetchHTTP(source)
	case strings.HasPrefix(source, "s3://"):
		return fetchS3(source)
	default:
		raw, err := os.ReadFile(source)
		if err != nil {
			return nil, errfmt.Wrap(errfmt.KindConfiguration, "读取endpoints文件失败", err)
		}
		return raw, nil
	}
}

// isYAML 按扩展名判断是否为YAML格式
func isYAML(source string) bool {
	ext := strings.ToLower(path.Ext(source))
	return ext == ".yaml" || ext == ".yml"
}
