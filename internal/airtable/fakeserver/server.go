// Package fakeserver 提供进程内的远程接口替身，供测试使用
// 支持表元数据、分页记录列表和附件下载三类接口，并可按需注入失败
package fakeserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Record 替身中的一条记录，Fields 为原始 JSON 对象文本以保留字段顺序
type Record struct {
	ID     string
	Fields string
}

type table struct {
	name    string
	records []Record
}

// Server 远程接口替身
type Server struct {
	APIKey   string
	BaseID   string
	PageSize int // 每页最多返回的记录数，0 表示使用请求中的 pageSize

	mu          sync.Mutex
	tables      []*table
	files       map[string][]byte
	metaStatus  int
	tableStatus map[string]int
	fileStatus  map[string]int
	requests    []string

	engine *gin.Engine
	srv    *httptest.Server
}

// New 创建并启动替身服务，测试结束时自动关闭
func New(t interface{ Cleanup(func()) }, apiKey, baseID string) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		APIKey:      apiKey,
		BaseID:      baseID,
		files:       make(map[string][]byte),
		tableStatus: make(map[string]int),
		fileStatus:  make(map[string]int),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.recordRequest())
	engine.Use(requestLogger())
	engine.GET("/v0/*path", s.handleAPI)
	engine.GET("/files/*key", s.handleFile)
	s.engine = engine

	s.srv = httptest.NewServer(engine)
	t.Cleanup(s.srv.Close)
	return s
}

// URL 替身服务根地址
func (s *Server) URL() string {
	return s.srv.URL
}

// AddTable 追加一张表，表按追加顺序出现在元数据中
func (s *Server) AddTable(name string, records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tables {
		if t.name == name {
			t.records = records
			return
		}
	}
	s.tables = append(s.tables, &table{name: name, records: records})
}

// AddFile 注册附件内容，返回可下载的地址
func (s *Server) AddFile(key string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
	return s.srv.URL + "/files/" + key
}

// FailMeta 令元数据接口返回指定状态码，0 表示恢复正常
func (s *Server) FailMeta(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metaStatus = status
}

// FailTable 令指定表的记录接口返回指定状态码，0 表示恢复正常
func (s *Server) FailTable(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableStatus[name] = status
}

// FailFile 令指定附件返回指定状态码，0 表示恢复正常
func (s *Server) FailFile(key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileStatus[key] = status
}

// Requests 已收到的请求，格式为 "METHOD path?query"
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) recordRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		line := c.Request.Method + " " + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			line += "?" + c.Request.URL.RawQuery
		}
		s.mu.Lock()
		s.requests = append(s.requests, line)
		s.mu.Unlock()
		c.Next()
	}
}

// handleAPI 分发 /v0/meta/bases/:base/tables 与 /v0/:base/:table
func (s *Server) handleAPI(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+s.APIKey {
		abortWithError(c, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}

	parts := strings.Split(strings.TrimPrefix(c.Param("path"), "/"), "/")
	switch {
	case len(parts) == 4 && parts[0] == "meta" && parts[1] == "bases" && parts[3] == "tables":
		s.handleTables(c, parts[2])
	case len(parts) == 2:
		s.handleRecords(c, parts[0], parts[1])
	default:
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Could not find what you are looking for")
	}
}

func (s *Server) handleTables(c *gin.Context, baseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.metaStatus != 0 {
		abortWithError(c, s.metaStatus, "SERVER_ERROR", "metadata unavailable")
		return
	}
	if baseID != s.BaseID {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Could not find base")
		return
	}

	tables := make([]gin.H, 0, len(s.tables))
	for i, t := range s.tables {
		tables = append(tables, gin.H{"id": fmt.Sprintf("tbl%03d", i), "name": t.name})
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

func (s *Server) handleRecords(c *gin.Context, baseID, tableName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status := s.tableStatus[tableName]; status != 0 {
		abortWithError(c, status, "SERVER_ERROR", "records unavailable")
		return
	}
	if baseID != s.BaseID {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "Could not find base")
		return
	}

	var tbl *table
	for _, t := range s.tables {
		if t.name == tableName {
			tbl = t
			break
		}
	}
	if tbl == nil {
		abortWithError(c, http.StatusNotFound, "TABLE_NOT_FOUND", "Could not find table "+tableName)
		return
	}

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "100"))
		if pageSize <= 0 {
			pageSize = 100
		}
	}

	start := 0
	if offset := c.Query("offset"); offset != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(offset, "itr"))
		if err != nil || n < 0 || n > len(tbl.records) {
			abortWithError(c, http.StatusUnprocessableEntity, "LIST_RECORDS_ITERATOR_NOT_AVAILABLE", "invalid offset")
			return
		}
		start = n
	}
	end := start + pageSize
	if end > len(tbl.records) {
		end = len(tbl.records)
	}

	// 手工拼接以保留字段在 JSON 中的顺序
	var b strings.Builder
	b.WriteString(`{"records":[`)
	for i, r := range tbl.records[start:end] {
		if i > 0 {
			b.WriteByte(',')
		}
		fields := r.Fields
		if fields == "" {
			fields = "{}"
		}
		fmt.Fprintf(&b, `{"id":%q,"createdTime":"2024-01-01T00:00:00.000Z","fields":%s}`, r.ID, fields)
	}
	b.WriteByte(']')
	if end < len(tbl.records) {
		fmt.Fprintf(&b, `,"offset":"itr%d"`, end)
	}
	b.WriteByte('}')

	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(b.String()))
}

func (s *Server) handleFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	s.mu.Lock()
	status := s.fileStatus[key]
	data, ok := s.files[key]
	s.mu.Unlock()

	if status != 0 {
		c.Status(status)
		return
	}
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// abortWithError 以远程接口的错误格式响应
func abortWithError(c *gin.Context, status int, typ, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"type":    typ,
			"message": message,
		},
	})
}
