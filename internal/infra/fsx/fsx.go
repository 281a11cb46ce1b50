package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// WriteFileAtomicNoOverwrite 在 dir 下原子写入 name；目标已存在时返回 os.ErrExist。
//
// 用于 config init 等“不允许覆盖用户文件”的场景。
func WriteFileAtomicNoOverwrite(dir, name string, data []byte) error {
	dst := filepath.Join(filepath.Clean(dir), name)
	if fi, err := os.Lstat(dst); err == nil {
		if fi.IsDir() {
			return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
		}
		if !fi.Mode().IsRegular() {
			return &PathTypeConflictError{Path: dst, Want: "regular file", Got: fi.Mode().Type().String()}
		}
		return os.ErrExist
	} else if !os.IsNotExist(err) {
		return err
	}
	return writeFileAtomic(dir, name, data, 0o644)
}

// WriteFileAtomicReplace 写入并覆盖同名文件（临时文件 + rename；Windows 上为 best-effort）。
//
// 用于 resolve --out 等可覆盖的结果文件。
func WriteFileAtomicReplace(dir, name string, data []byte) error {
	dst := filepath.Join(filepath.Clean(dir), name)
	if fi, err := os.Lstat(dst); err == nil && fi.IsDir() {
		return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	}
	return writeFileAtomic(dir, name, data, 0o644)
}

func writeFileAtomic(dir, name string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)

	// 临时文件必须与目标同目录，才能保证 rename 的原子性。
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := renameFunc(tmpName, dst); err != nil {
		return err
	}

	// 目录 fsync：best-effort（不同平台/文件系统的语义差异很大）。
	_ = syncDirBestEffort(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
