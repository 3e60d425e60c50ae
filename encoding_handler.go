package fluentzip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

const (
	// zip中央目录结束记录的最小长度
	eocdMinLength = 22
	// 注释最大长度 + 结束记录长度
	eocdSearchWindow = 65535 + eocdMinLength
	// 注释长度字段相对签名的偏移
	eocdCommentLengthOffset = 20

	// chardet置信度阈值
	detectConfidenceThreshold = 80
	// 条目名解码缓存容量
	nameCacheSize = 4096
)

// eocdSignature 中央目录结束记录签名 PK\x05\x06
var eocdSignature = []byte{0x50, 0x4B, 0x05, 0x06}

// textCodec 候选编码
type textCodec struct {
	name string
	enc  encoding.Encoding // nil 表示 UTF-8
}

// commentCodecs 注释解码候选顺序，严格和宽松两轮共用
var commentCodecs = []textCodec{
	{name: "UTF-8"},
	{name: "GBK", enc: simplifiedchinese.GBK},
	{name: "BIG5", enc: traditionalchinese.Big5},
	{name: "SHIFT_JIS", enc: japanese.ShiftJIS},
	{name: "EUC-KR", enc: korean.EUCKR},
	{name: "WINDOWS-1252", enc: charmap.Windows1252},
}

// CommentCodecOrder 返回注释解码的候选编码顺序
func CommentCodecOrder() []string {
	names := make([]string, 0, len(commentCodecs))
	for _, c := range commentCodecs {
		names = append(names, c.name)
	}
	return names
}

// DecodeComment 按固定顺序先严格后宽松地解码注释字节
func DecodeComment(raw []byte) string {
	text, _ := decodeWithCodecs(raw, commentCodecs)
	return text
}

// decodeWithCodecs 返回解码文本和命中的编码名
func decodeWithCodecs(raw []byte, codecs []textCodec) (string, string) {
	if len(raw) == 0 {
		return "", ""
	}
	for _, c := range codecs {
		if text, err := c.decode(raw, true); err == nil {
			return text, c.name
		}
	}
	for _, c := range codecs {
		if text, err := c.decode(raw, false); err == nil {
			return text, c.name
		}
	}
	return strings.ToValidUTF8(string(raw), "�"), "UTF-8"
}

var errStrictDecode = errors.New("字节序列对该编码无效")

// decode 严格模式下任何非法序列都视为失败
func (c textCodec) decode(raw []byte, strict bool) (string, error) {
	if c.enc == nil {
		if strict && !utf8.Valid(raw) {
			return "", errStrictDecode
		}
		return strings.ToValidUTF8(string(raw), "�"), nil
	}

	decoded, _, err := transform.Bytes(c.enc.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	if strict && bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", errStrictDecode
	}
	return string(decoded), nil
}

// ReadZipComment 读取ZIP结尾的注释原始字节
// 未找到签名或声明长度越界时返回空。
func ReadZipComment(archivePath string) ([]byte, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	return readZipCommentAt(file, stat.Size())
}

// readZipCommentAt 在最后 min(65557, size) 字节内从后向前查找结束记录
func readZipCommentAt(r io.ReaderAt, size int64) ([]byte, error) {
	if size < eocdMinLength {
		return nil, nil
	}

	window := int64(eocdSearchWindow)
	if size < window {
		window = size
	}
	buf := make([]byte, window)
	if _, err := r.ReadAt(buf, size-window); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	for i := len(buf) - eocdMinLength; i >= 0; i-- {
		if !bytes.Equal(buf[i:i+4], eocdSignature) {
			continue
		}
		length := int(binary.LittleEndian.Uint16(buf[i+eocdCommentLengthOffset:]))
		start := i + eocdMinLength
		if start+length > len(buf) {
			return nil, nil
		}
		return append([]byte(nil), buf[start:start+length]...), nil
	}
	return nil, nil
}

// EncodingHandler 编码处理器接口
type EncodingHandler interface {
	// DecodeComment 解码压缩包注释
	DecodeComment(raw []byte) string

	// DecodeEntryName 解码未声明UTF-8的条目名，返回文本和使用的编码
	DecodeEntryName(raw string) (string, string)

	// DetectEncoding 使用chardet猜测编码，无法判断时返回空
	DetectEncoding(raw []byte) string
}

// defaultEncodingHandler 默认编码处理器实现
type defaultEncodingHandler struct {
	names *lru.Cache[string, decodedName]
}

// decodedName 缓存项
type decodedName struct {
	text  string
	codec string
}

// NewEncodingHandler 创建新的编码处理器
func NewEncodingHandler() EncodingHandler {
	cache, err := lru.New[string, decodedName](nameCacheSize)
	if err != nil {
		// 只有容量非正时才会出错
		panic(err)
	}
	return &defaultEncodingHandler{names: cache}
}

// DecodeComment 解码压缩包注释
func (h *defaultEncodingHandler) DecodeComment(raw []byte) string {
	return DecodeComment(raw)
}

// DecodeEntryName 解码条目名
func (h *defaultEncodingHandler) DecodeEntryName(raw string) (string, string) {
	if utf8.ValidString(raw) {
		return raw, "UTF-8"
	}
	if cached, ok := h.names.Get(raw); ok {
		return cached.text, cached.codec
	}

	result := h.decodeLegacyName([]byte(raw))
	h.names.Add(raw, result)
	return result.text, result.codec
}

// decodeLegacyName chardet结果优先，其次按注释候选顺序
func (h *defaultEncodingHandler) decodeLegacyName(raw []byte) decodedName {
	if hinted := h.DetectEncoding(raw); hinted != "" {
		for _, c := range commentCodecs {
			if c.name != hinted {
				continue
			}
			if text, err := c.decode(raw, true); err == nil {
				return decodedName{text: text, codec: c.name}
			}
		}
	}

	text, codec := decodeWithCodecs(raw, commentCodecs)
	return decodedName{text: text, codec: codec}
}

// DetectEncoding 使用chardet检测编码
func (h *defaultEncodingHandler) DetectEncoding(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if utf8.Valid(raw) {
		return "UTF-8"
	}

	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(raw)
	if err != nil || result.Confidence < detectConfidenceThreshold {
		return ""
	}
	return mapCharsetToCodec(result.Charset)
}

// mapCharsetToCodec 将chardet的字符集映射到候选编码名
func mapCharsetToCodec(charset string) string {
	switch strings.ToUpper(charset) {
	case "GB-18030", "GB18030", "GB2312", "GBK":
		return "GBK"
	case "BIG5":
		return "BIG5"
	case "SHIFT_JIS", "SJIS":
		return "SHIFT_JIS"
	case "EUC-KR":
		return "EUC-KR"
	case "ISO-8859-1", "WINDOWS-1252":
		return "WINDOWS-1252"
	case "UTF-8":
		return "UTF-8"
	default:
		return ""
	}
}
