package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gostat/pkg/sdk"
)

const maxEvents = 15 // 事件列表只保留最近 N 条

var (
	// 样式定义
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	// 每个 op 一个颜色，事件列表一眼可分
	opStyles = map[string]lipgloss.Style{
		"pdf": lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // 绿色
		"cdf": lipgloss.NewStyle().Foreground(lipgloss.Color("4")), // 蓝色
		"erf": lipgloss.NewStyle().Foreground(lipgloss.Color("5")), // 紫色
		"ppf": lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // 红色
	}
)

// model 是应用程序的状态
type model struct {
	serverURL string
	token     string

	client *sdk.Client
	sess   *sdk.WatchSession

	events []sdk.Event      // 最近事件，新的在前
	counts map[string]int64 // 本次会话内的 op 计数
	total  int64

	usage *sdk.Usage // 服务端累计用量（定时拉取）

	connected bool
	closed    bool
	err       error

	ctx    context.Context
	cancel context.CancelFunc
}

// tickMsg 定时器消息（刷新显示）
type tickMsg time.Time

// usagePollMsg 用量拉取定时器消息
type usagePollMsg time.Time

// connectedMsg 连接成功消息
type connectedMsg struct {
	client *sdk.Client
	sess   *sdk.WatchSession
}

// eventMsg 一条评估事件
type eventMsg sdk.Event

// streamClosedMsg 事件流结束消息
type streamClosedMsg struct {
	err error
}

// usageMsg 服务端用量快照
type usageMsg struct {
	usage *sdk.Usage
}

func initialModel(serverURL, token string) model {
	ctx, cancel := context.WithCancel(context.Background())
	return model{
		serverURL: serverURL,
		token:     token,
		events:    make([]sdk.Event, 0, maxEvents),
		counts:    make(map[string]int64),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		connectCmd(m.ctx, m.serverURL, m.token),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.sess != nil {
				_ = m.sess.Close()
			}
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tickMsg:
		// 只为刷新事件年龄显示
		return m, tickCmd()

	case usagePollMsg:
		return m, tea.Batch(usagePollCmd(), fetchUsageCmd(m.ctx, m.client))

	case connectedMsg:
		m.client = msg.client
		m.sess = msg.sess
		m.connected = true
		return m, tea.Batch(
			waitEventCmd(m.sess),
			fetchUsageCmd(m.ctx, m.client),
			usagePollCmd(),
		)

	case eventMsg:
		ev := sdk.Event(msg)
		m.events = append([]sdk.Event{ev}, m.events...)
		if len(m.events) > maxEvents {
			m.events = m.events[:maxEvents]
		}
		m.counts[ev.Op]++
		m.total++
		return m, waitEventCmd(m.sess)

	case streamClosedMsg:
		m.closed = true
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil

	case usageMsg:
		if msg.usage != nil {
			m.usage = msg.usage
		}
		return m, nil

	case error:
		m.err = msg
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	if m.err != nil && !m.connected {
		return fmt.Sprintf("错误: %v\n\n按 q 退出", m.err)
	}

	if !m.connected {
		return "正在连接 " + m.serverURL + " ...\n\n按 q 退出"
	}

	var s strings.Builder

	status := "已连接"
	if m.closed {
		status = "流已断开"
		if m.err != nil {
			status = fmt.Sprintf("流已断开: %v", m.err)
		}
	}
	header := headerStyle.Render(fmt.Sprintf("评估事件流 | %s | %s", m.serverURL, status))
	s.WriteString(header)
	s.WriteString("\n\n")

	s.WriteString(renderCounts(m.counts, m.total, m.usage))
	s.WriteString("\n\n")

	s.WriteString(renderEvents(m.events))
	s.WriteString("\n\n")

	s.WriteString(dimStyle.Render("按 q 退出"))

	return s.String()
}

// renderCounts 左列：本次会话计数；右列：服务端累计用量
func renderCounts(counts map[string]int64, total int64, usage *sdk.Usage) string {
	var left strings.Builder
	left.WriteString("本次会话\n")
	left.WriteString(fmt.Sprintf("  总计  %6d\n", total))
	for _, op := range []string{"pdf", "cdf", "erf", "ppf"} {
		style, ok := opStyles[op]
		name := op
		if ok {
			name = style.Render(op)
		}
		left.WriteString(fmt.Sprintf("  %s   %6d\n", name, counts[op]))
	}

	var right strings.Builder
	right.WriteString("服务端累计\n")
	if usage == nil {
		right.WriteString("  --\n")
	} else {
		right.WriteString(fmt.Sprintf("  总计  %6d\n", usage.TotalRequests))
		for _, op := range []string{"pdf", "cdf", "erf", "ppf"} {
			right.WriteString(fmt.Sprintf("  %s   %6d\n", op, usage.PerOp[op]))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		borderStyle.Render(left.String()),
		"  ",
		borderStyle.Render(right.String()))
}

func renderEvents(events []sdk.Event) string {
	var s strings.Builder
	s.WriteString("最近事件\n")
	if len(events) == 0 {
		s.WriteString(dimStyle.Render("  等待事件...（对服务发起一次评估即可看到）"))
		s.WriteString("\n")
		return borderStyle.Render(s.String())
	}
	for _, ev := range events {
		style, ok := opStyles[ev.Op]
		name := fmt.Sprintf("%-3s", ev.Op)
		if ok {
			name = style.Render(name)
		}
		age := time.Since(ev.TS).Round(time.Second)
		caller := ev.Caller
		if caller == "" {
			caller = "-"
		}
		s.WriteString(fmt.Sprintf("  %s  %-24s → %-24s  %s %s\n",
			name, trim(ev.Input, 24), trim(ev.Result, 24),
			dimStyle.Render(caller), dimStyle.Render(age.String()+"前")))
	}
	return borderStyle.Render(s.String())
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// Commands

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func usagePollCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return usagePollMsg(t)
	})
}

func connectCmd(ctx context.Context, serverURL, token string) tea.Cmd {
	return func() tea.Msg {
		var opts []sdk.Option
		if token != "" {
			opts = append(opts, sdk.WithToken(token))
		}
		c := sdk.New(serverURL, opts...)

		if err := c.Health(ctx); err != nil {
			return fmt.Errorf("服务不可达: %w", err)
		}
		sess, err := c.Watch(ctx)
		if err != nil {
			return fmt.Errorf("订阅评估流失败: %w", err)
		}
		return connectedMsg{client: c, sess: sess}
	}
}

func waitEventCmd(sess *sdk.WatchSession) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sess.Events()
		if !ok {
			return streamClosedMsg{err: sess.Err()}
		}
		return eventMsg(ev)
	}
}

func fetchUsageCmd(ctx context.Context, c *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		if c == nil {
			return nil
		}
		reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		u, err := c.Usage(reqCtx)
		if err != nil {
			// 用量拉取失败不打断事件流，保留上一次的值
			return nil
		}
		return usageMsg{usage: u}
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		serverURL = flag.String("server", getenv("GOSTAT_SERVER", "http://127.0.0.1:8080"), "评估服务地址")
		token     = flag.String("token", getenv("GOSTAT_TOKEN", ""), "Bearer token（服务启用鉴权时需要）")
	)
	flag.Parse()

	// 重定向 logrus 输出到文件，避免干扰 TUI
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logDir = os.TempDir()
	}
	logFile := filepath.Join(logDir, "eval-watcher-tui.log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logrus.SetOutput(file)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   true, // 禁用颜色，因为写入文件
		})
	}

	// 启用日志文件（用于调试）
	if len(os.Getenv("DEBUG")) > 0 {
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
	}

	p := tea.NewProgram(initialModel(*serverURL, *token), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("运行程序失败: %v", err)
	}
}
