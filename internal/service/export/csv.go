package service

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/weiwangfds/basebackup/internal/airtable"
	"github.com/weiwangfds/basebackup/internal/errors"
)

// Row 一条导出行，Keys 记录列的出现顺序
type Row struct {
	Keys   []string
	Values map[string]string
}

// BuildRow 把记录转换为导出行
// 附件列表字段替换为以 ", " 连接的 url；id 已作为字段存在时原位覆盖，否则追加在末尾
func BuildRow(rec airtable.Record) Row {
	row := Row{Values: make(map[string]string, len(rec.Fields)+1)}
	for _, f := range rec.Fields {
		var cell string
		if f.Kind() == airtable.AttachmentList {
			cell = airtable.JoinURLs(f.Value)
		} else {
			cell = formatCell(f.Value)
		}
		if _, seen := row.Values[f.Name]; !seen {
			row.Keys = append(row.Keys, f.Name)
		}
		row.Values[f.Name] = cell
	}
	if _, seen := row.Values[airtable.IDKey]; !seen {
		row.Keys = append(row.Keys, airtable.IDKey)
	}
	row.Values[airtable.IDKey] = rec.ID
	return row
}

// BuildRows 按记录顺序转换全部记录
func BuildRows(records []airtable.Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, BuildRow(rec))
	}
	return rows
}

// Header 所有行的列名并集，按首次出现的顺序排列
func Header(rows []Row) []string {
	seen := make(map[string]bool)
	var header []string
	for _, row := range rows {
		for _, k := range row.Keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}
	return header
}

// WriteCSV 将导出行写入 path，已存在的文件会被覆盖
// 没有任何行时写入空文件
func WriteCSV(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrFileWrite, err, "create %s", path)
	}
	defer file.Close()

	if len(rows) > 0 {
		w := csv.NewWriter(file)
		header := Header(rows)
		if err := w.Write(header); err != nil {
			return errors.Wrapf(errors.ErrFileWrite, err, "write header of %s", path)
		}
		record := make([]string, len(header))
		for _, row := range rows {
			for i, k := range header {
				record[i] = row.Values[k]
			}
			if err := w.Write(record); err != nil {
				return errors.Wrapf(errors.ErrFileWrite, err, "write %s", path)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return errors.Wrapf(errors.ErrFileWrite, err, "flush %s", path)
		}
	}

	if err := file.Close(); err != nil {
		return errors.Wrapf(errors.ErrFileWrite, err, "close %s", path)
	}
	return nil
}

// formatCell 单元格文本：字符串原样，数字保留原始写法，
// 列表和对象输出紧凑 JSON，null 为空
func formatCell(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return v.Raw
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Null:
		return ""
	default:
		return strings.TrimSpace(v.Get("@ugly").Raw)
	}
}
