package Transformer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// WGS84Name WGS84地理坐标系的规范名称
const WGS84Name = "GCS_WGS_1984"

var ErrBadProjection = errors.New("invalid projection definition")

// WKTNode 投影WKT定义的一个节点，如 GEOGCS["GCS_WGS_1984",DATUM[...],...]
type WKTNode struct {
	Keyword  string
	Name     string
	Values   []string
	Children []*WKTNode
}

type wktParser struct {
	input string
	pos   int
}

// ParseWKT 解析prj文件中的坐标系WKT定义
func ParseWKT(text string) (*WKTNode, error) {
	p := &wktParser{input: strings.TrimSpace(text)}
	if p.input == "" {
		return nil, fmt.Errorf("%w: empty text", ErrBadProjection)
	}
	node, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("%w: trailing content at offset %d", ErrBadProjection, p.pos)
	}
	return node, nil
}

// CheckWGS84CRS 校验prj文本是否为WGS84地理坐标系
// 文本无法解析时返回错误，解析成功但坐标系不符时返回false
func CheckWGS84CRS(text string) (bool, error) {
	node, err := ParseWKT(text)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(node.Name, WGS84Name), nil
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

// parseNode 解析 KEYWORD[arg,arg,...] 结构，兼容()括号
func (p *wktParser) parseNode() (*WKTNode, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && isKeywordChar(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("%w: expected keyword at offset %d", ErrBadProjection, p.pos)
	}
	node := &WKTNode{Keyword: p.input[start:p.pos]}

	p.skipSpace()
	if p.pos >= len(p.input) || (p.input[p.pos] != '[' && p.input[p.pos] != '(') {
		return nil, fmt.Errorf("%w: expected '[' after %s", ErrBadProjection, node.Keyword)
	}
	open := p.input[p.pos]
	close := byte(']')
	if open == '(' {
		close = ')'
	}
	p.pos++

	first := true
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("%w: unterminated %s", ErrBadProjection, node.Keyword)
		}
		if p.input[p.pos] == close {
			p.pos++
			break
		}
		if !first {
			if p.input[p.pos] != ',' {
				return nil, fmt.Errorf("%w: expected ',' at offset %d", ErrBadProjection, p.pos)
			}
			p.pos++
			p.skipSpace()
		}
		first = false

		switch {
		case p.pos < len(p.input) && p.input[p.pos] == '"':
			s, err := p.parseQuoted()
			if err != nil {
				return nil, err
			}
			// 第一个字符串参数即节点名称
			if node.Name == "" && len(node.Values) == 0 && len(node.Children) == 0 {
				node.Name = s
			} else {
				node.Values = append(node.Values, s)
			}
		case p.pos < len(p.input) && isKeywordStart(p.input[p.pos]):
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		default:
			v, err := p.parseBare(close)
			if err != nil {
				return nil, err
			}
			node.Values = append(node.Values, v)
		}
	}
	return node, nil
}

func (p *wktParser) parseQuoted() (string, error) {
	p.pos++ // 跳过起始引号
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '"' {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return "", fmt.Errorf("%w: unterminated string", ErrBadProjection)
	}
	s := p.input[start:p.pos]
	p.pos++
	return s, nil
}

// parseBare 解析数字等裸参数
func (p *wktParser) parseBare(close byte) (string, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != ',' && p.input[p.pos] != close {
		p.pos++
	}
	v := strings.TrimSpace(p.input[start:p.pos])
	if v == "" {
		return "", fmt.Errorf("%w: empty value at offset %d", ErrBadProjection, start)
	}
	return v, nil
}

func isKeywordStart(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

func isKeywordChar(c byte) bool {
	return isKeywordStart(c) || c == '_' || c >= '0' && c <= '9'
}

// FindNode 按关键字深度优先查找子节点
func FindNode(node *WKTNode, keyword string) *WKTNode {
	if node == nil {
		return nil
	}
	if strings.EqualFold(node.Keyword, keyword) {
		return node
	}
	for _, child := range node.Children {
		if found := FindNode(child, keyword); found != nil {
			return found
		}
	}
	return nil
}
