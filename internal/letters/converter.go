package letters

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ConverterClient 外部 HTML→PDF 转换服务客户端（Gotenberg 兼容接口）
type ConverterClient struct {
	client *resty.Client
}

// NewConverterClient 创建转换服务客户端
func NewConverterClient(baseURL string) *ConverterClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)

	return &ConverterClient{client: client}
}

// Convert 将渲染好的 HTML 转换为 PDF
func (c *ConverterClient) Convert(ctx context.Context, html []byte) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("files", "index.html", bytes.NewReader(html)).
		Post("/forms/chromium/convert/html")
	if err != nil {
		return nil, fmt.Errorf("convert letter to pdf: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("convert letter to pdf: converter returned %s", resp.Status())
	}
	return resp.Body(), nil
}
