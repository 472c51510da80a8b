// Package persistence stores process state that must survive restarts,
// keyed by "prefix:id:tag". Struct fields opt in with a `persistence`
// tag and are saved and restored as one JSON document per field.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/betbot/gostat/pkg/logger"
)

// ErrNotExists 表示该 key 尚无已保存的数据
var ErrNotExists = errors.New("persistence: data not exists")

// Service 按 key 派发存储
type Service interface {
	NewStore(prefix, id, tag string) Store
}

// Store 单个 key 的读写
type Store interface {
	Save(v interface{}) error
	Load(v interface{}) error
}

// JSONFileService 把每个 key 存成 baseDir 下的一个 JSON 文件
type JSONFileService struct {
	baseDir string
}

func NewJSONFileService(baseDir string) *JSONFileService {
	return &JSONFileService{baseDir: baseDir}
}

// 文件名只保留安全字符，key 里的冒号等一律折叠成下划线
var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func (s *JSONFileService) NewStore(prefix, id, tag string) Store {
	key := prefix + ":" + id + ":" + tag
	name := keySanitizer.ReplaceAllString(key, "_") + ".json"
	return &jsonFileStore{
		dir:  s.baseDir,
		path: filepath.Join(s.baseDir, name),
		key:  key,
	}
}

type jsonFileStore struct {
	dir  string
	path string
	key  string
}

// Save 先写临时文件再改名，重启时不会读到半截文件
func (s *jsonFileStore) Save(v interface{}) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	logger.Debugf("[persistence] 已保存 %s", s.key)
	return nil
}

func (s *jsonFileStore) Load(v interface{}) error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExists
		}
		return err
	}
	if len(b) == 0 {
		return ErrNotExists
	}
	return json.Unmarshal(b, v)
}

// SaveFields 保存 obj 中所有带 persistence tag 的字段，key 前缀固定为 state
func SaveFields(obj interface{}, id string, service Service) error {
	return eachTaggedField(obj, func(tag string, fv reflect.Value) error {
		return service.NewStore("state", id, tag).Save(fv.Interface())
	})
}

// LoadFields 恢复 obj 中所有带 persistence tag 的字段；缺失的 key 保持零值
func LoadFields(obj interface{}, id string, service Service) error {
	return eachTaggedField(obj, func(tag string, fv reflect.Value) error {
		fresh := reflect.New(fv.Type())
		err := service.NewStore("state", id, tag).Load(fresh.Interface())
		if err != nil {
			if errors.Is(err, ErrNotExists) {
				logger.Debugf("[persistence] 无历史状态：id=%s tag=%s", id, tag)
				return nil
			}
			return err
		}
		fv.Set(fresh.Elem())
		return nil
	})
}

// eachTaggedField 深度遍历结构体，对每个带 persistence tag 的可写字段
// 调用 fn；tag 仅取逗号前的部分
func eachTaggedField(obj interface{}, fn func(tag string, fv reflect.Value) error) error {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("persistence: want struct or pointer to struct, got %T", obj)
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		tag := t.Field(i).Tag.Get("persistence")
		if tag == "" || tag == "-" {
			if fv.Kind() == reflect.Struct {
				if err := eachTaggedField(fv.Addr().Interface(), fn); err != nil {
					return err
				}
			}
			continue
		}
		if err := fn(strings.SplitN(tag, ",", 2)[0], fv); err != nil {
			return err
		}
	}
	return nil
}
