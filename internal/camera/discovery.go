package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DeviceInfo はカメラデバイスの情報
type DeviceInfo struct {
	Device string // デバイスパス
	Name   string // sysfs から取得した名前
	Index  int    // /dev/videoN の N
}

// Discovery はV4L2デバイスを検出する
type Discovery struct {
	DevGlob   string // デバイスファイルのパターン
	SysfsRoot string // video4linux の sysfs ディレクトリ
}

// NewDiscovery はLinux標準のパスを使うDiscoveryを作成する
func NewDiscovery() *Discovery {
	return &Discovery{
		DevGlob:   "/dev/video*",
		SysfsRoot: "/sys/class/video4linux",
	}
}

var deviceNumberPattern = regexp.MustCompile(`video(\d+)$`)

// ScanDevices はシステム内のカメラデバイスを番号順に返す
func (d *Discovery) ScanDevices(ctx context.Context) ([]DeviceInfo, error) {
	matches, err := filepath.Glob(d.DevGlob)
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(matches))
	for _, match := range matches {
		// コンテキストのキャンセルをチェック
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		num, ok := extractDeviceNumber(match)
		if !ok {
			continue
		}
		devices = append(devices, DeviceInfo{
			Device: match,
			Name:   d.deviceName(filepath.Base(match), num),
			Index:  num,
		})
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Index < devices[j].Index
	})
	return devices, nil
}

// DefaultDevice は最も番号の小さいデバイスを返す
func (d *Discovery) DefaultDevice(ctx context.Context) (string, error) {
	devices, err := d.ScanDevices(ctx)
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("カメラデバイスが見つかりません: %w", os.ErrNotExist)
	}
	return devices[0].Device, nil
}

// deviceName は sysfs の name ファイルから表示名を取得する
func (d *Discovery) deviceName(base string, num int) string {
	data, err := os.ReadFile(filepath.Join(d.SysfsRoot, base, "name"))
	if err == nil {
		if name := strings.TrimSpace(string(data)); name != "" {
			return name
		}
	}
	// フォールバック: デバイス番号から生成
	return fmt.Sprintf("Camera %d", num)
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(device string) (int, bool) {
	matches := deviceNumberPattern.FindStringSubmatch(device)
	if len(matches) < 2 {
		return 0, false
	}
	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return num, true
}
