package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/raphaelgruber/reweave-go/internal/service"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// jobUpdateMsg carries the updated job data
type jobUpdateMsg struct {
	job *models.TransformJob
	err error
}

// progressModel is the bubbletea model for job progress.
type progressModel struct {
	jobs     *service.JobService
	jobID    string
	job      *models.TransformJob
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

// newProgressModel creates a new progress model.
func newProgressModel(jobs *service.JobService, job *models.TransformJob) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		jobs:     jobs,
		jobID:    models.MustRecordIDString(job.ID),
		job:      job,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchJob()

	case jobUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch job status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.job = msg.job

		if m.job.Status.Terminal() {
			m.done = true
			if m.job.Status == models.JobStatusFailed {
				if m.job.ErrorMessage != "" {
					m.err = fmt.Errorf("%s", m.job.ErrorMessage)
				} else {
					m.err = fmt.Errorf("job failed with unknown error")
				}
			}
			return m, tea.Quit
		}

		// Continue polling for running jobs
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.job == nil {
		return "Loading job status...\n"
	}

	var pct float64
	if m.job.TotalItems > 0 {
		pct = float64(m.job.ProcessedItems) / float64(m.job.TotalItems)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.Status))
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d items", m.job.ProcessedItems, m.job.TotalItems)
	if m.job.FailedItems > 0 {
		counts += fmt.Sprintf(" (%d failed)", m.job.FailedItems)
	}
	if m.job.CurrentItemID != "" {
		counts += "  " + m.theme.hintStyle().Render(m.job.CurrentItemID)
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nJob %s continues in background.\nUse 'reweave jobs %s' to check status.\n",
			m.jobID, m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Job failed: %s\n", m.err))
	}

	if m.job != nil {
		var output string
		if m.job.Status == models.JobStatusCancelled {
			output = m.theme.hintStyle().Render("✗ Cancelled") + "\n"
		} else {
			output = m.theme.completedStyle().Render("✓ Completed") + "\n"
		}
		output += fmt.Sprintf("\n  Items processed: %d\n", m.job.ProcessedItems)
		if m.job.FailedItems > 0 {
			output += m.theme.errorStyle().Render(fmt.Sprintf("  Items failed:    %d\n", m.job.FailedItems))
		}
		return output
	}

	return m.theme.completedStyle().Render("✓ Completed\n")
}

// fetchJob fetches the current job status.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m progressModel) fetchJob() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := m.jobs.Get(ctx, m.jobID)
		return jobUpdateMsg{job: job, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunJobProgress runs the interactive progress UI for a job.
// Returns nil on success or Ctrl+C (background), error on job failure.
func RunJobProgress(jobs *service.JobService, job *models.TransformJob) error {
	model := newProgressModel(jobs, job)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		// Ctrl+C means the job continues in background - not an error
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
