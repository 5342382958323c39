// Package airtable 实现备份所需的远程接口访问
// 包括表元数据查询、记录分页拉取和附件内容下载
package airtable

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/weiwangfds/basebackup/config"
	"github.com/weiwangfds/basebackup/internal/errors"
	"github.com/weiwangfds/basebackup/internal/logger"
	"golang.org/x/net/http2"
)

// Client 远程接口客户端
// 所有方法都是同步调用，同一时刻最多只有一个请求在进行
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	baseID     string
	pageSize   int
}

// NewClient 创建远程接口客户端
// 参数:
//   - cfg: 远程数据源配置
//
// 返回:
//   - *Client: 客户端实例
func NewClient(cfg config.AirtableConfig) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warnf("[远程接口] 配置HTTP/2失败，使用HTTP/1.1: %v", err)
		}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	logger.Debugf("[远程接口] 创建客户端: 接口地址=%s, base=%s, 分页大小=%d, HTTP/2=%v",
		cfg.APIURL, cfg.BaseID, pageSize, cfg.EnableHTTP2)

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Timeout) * time.Second,
		},
		apiURL:   strings.TrimRight(cfg.APIURL, "/"),
		apiKey:   cfg.APIKey,
		baseID:   cfg.BaseID,
		pageSize: pageSize,
	}
}

// BaseID 返回客户端访问的 base
func (c *Client) BaseID() string {
	return c.baseID
}

// ListTableNames 查询 base 中所有表的名称
// 顺序与元数据接口返回的顺序一致
func (c *Client) ListTableNames(ctx context.Context) ([]string, error) {
	endpoint := fmt.Sprintf("%s/v0/meta/bases/%s/tables", c.apiURL, url.PathEscape(c.baseID))

	body, err := c.getJSON(ctx, endpoint)
	if err != nil {
		logger.Errorf("[远程接口] 获取表名失败: %v", err)
		return nil, err
	}

	tables := gjson.GetBytes(body, "tables")
	if !tables.IsArray() {
		err := errors.NewWithDetails(errors.ErrRemoteResponse, errors.GetErrorMessage(errors.ErrRemoteResponse),
			"metadata response has no tables array")
		logger.Errorf("[远程接口] 获取表名失败: %v", err)
		return nil, err
	}

	names := make([]string, 0, len(tables.Array()))
	tables.ForEach(func(_, table gjson.Result) bool {
		names = append(names, table.Get("name").String())
		return true
	})

	logger.Infof("[远程接口] 获取到 %d 张表", len(names))
	return names, nil
}

// ListRecords 拉取表中的全部记录
// 分页由 offset 游标驱动，返回前会读完所有分页
func (c *Client) ListRecords(ctx context.Context, tableName string) ([]Record, error) {
	var records []Record
	offset := ""
	page := 0

	for {
		query := url.Values{}
		query.Set("pageSize", strconv.Itoa(c.pageSize))
		if offset != "" {
			query.Set("offset", offset)
		}
		endpoint := fmt.Sprintf("%s/v0/%s/%s?%s", c.apiURL,
			url.PathEscape(c.baseID), url.PathEscape(tableName), query.Encode())

		body, err := c.getJSON(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		result := gjson.ParseBytes(body)
		recs := result.Get("records")
		if !recs.IsArray() {
			return nil, errors.NewWithDetails(errors.ErrRemoteResponse, errors.GetErrorMessage(errors.ErrRemoteResponse),
				fmt.Sprintf("table %q: response has no records array", tableName))
		}
		recs.ForEach(func(_, r gjson.Result) bool {
			records = append(records, recordFromResult(r))
			return true
		})

		page++
		offset = result.Get("offset").String()
		logger.Debugf("[远程接口] 表 %s 第 %d 页, 累计 %d 条记录", tableName, page, len(records))
		if offset == "" {
			break
		}
	}

	return records, nil
}

// OpenAttachment 打开附件内容流，调用方负责关闭
// 附件地址是带签名的外部地址，不携带访问令牌
func (c *Client) OpenAttachment(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrAttachmentDownload, err, "build request for %s", rawURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrAttachmentDownload, err, "GET %s", rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.NewWithDetails(errors.ErrAttachmentDownload, errors.GetErrorMessage(errors.ErrAttachmentDownload),
			fmt.Sprintf("GET %s: bad http response %s", rawURL, resp.Status))
	}
	return resp.Body, nil
}

// getJSON 携带访问令牌发起 GET 请求并返回响应体
// 非 2xx 状态码和网络错误都返回 ErrRemoteQuery
func (c *Client) getJSON(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrRemoteQuery, err, "build request for %s", endpoint)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrRemoteQuery, err, "GET %s", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrRemoteQuery, err, "read response of %s", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewWithDetails(errors.ErrRemoteQuery, errors.GetErrorMessage(errors.ErrRemoteQuery),
			fmt.Sprintf("GET %s: status %s: %s", endpoint, resp.Status, remoteErrorMessage(body)))
	}

	if !gjson.ValidBytes(body) {
		return nil, errors.NewWithDetails(errors.ErrRemoteResponse, errors.GetErrorMessage(errors.ErrRemoteResponse),
			fmt.Sprintf("GET %s: invalid JSON body", endpoint))
	}
	return body, nil
}

// remoteErrorMessage 从错误响应体中提取错误描述
// 兼容 {"error": "TYPE"} 和 {"error": {"type": ..., "message": ...}} 两种格式
func remoteErrorMessage(body []byte) string {
	e := gjson.GetBytes(body, "error")
	switch {
	case !e.Exists():
		return strings.TrimSpace(string(body))
	case e.IsObject():
		typ, msg := e.Get("type").String(), e.Get("message").String()
		if msg == "" {
			return typ
		}
		return typ + ": " + msg
	default:
		return e.String()
	}
}
