package dashboard

import "net/http"

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Helmpanel</title>
<style>
  :root {
    --bg: #0d1117;
    --surface: #161b22;
    --border: #30363d;
    --text: #e6edf3;
    --text-dim: #8b949e;
    --accent: #58a6ff;
    --green: #3fb950;
    --yellow: #d29922;
    --red: #f85149;
    --purple: #bc8cff;
  }
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
    background: var(--bg);
    color: var(--text);
    font-size: 14px;
    line-height: 1.5;
    padding: 16px;
  }
  header {
    display: flex;
    align-items: center;
    justify-content: space-between;
    margin-bottom: 16px;
    padding-bottom: 12px;
    border-bottom: 1px solid var(--border);
  }
  header h1 { font-size: 20px; font-weight: 600; }
  header h1 span { color: var(--accent); }
  .meta { font-size: 12px; color: var(--text-dim); }
  .panel-bar { display: flex; gap: 8px; margin-bottom: 16px; flex-wrap: wrap; }
  .card {
    background: var(--surface);
    border: 1px solid var(--border);
    border-radius: 8px;
    margin-bottom: 16px;
  }
  .card-header {
    padding: 10px 14px;
    border-bottom: 1px solid var(--border);
    font-weight: 600;
    font-size: 13px;
    text-transform: uppercase;
    letter-spacing: 0.5px;
    color: var(--text-dim);
    display: flex;
    gap: 8px;
    align-items: center;
  }
  .card-header .stop { margin-left: auto; color: var(--red); }
  .card-body { padding: 12px 14px; display: flex; flex-direction: column; gap: 8px; }
  .row { display: flex; gap: 8px; flex-wrap: wrap; }
  button {
    background: var(--bg);
    color: var(--text);
    border: 1px solid var(--border);
    border-radius: 6px;
    padding: 4px 12px;
    cursor: pointer;
    font-size: 13px;
  }
  button:hover { border-color: var(--accent); }
  button.on { border-color: var(--green); color: var(--green); }
  button.active { border-color: var(--green); background: rgba(63,185,80,0.15); }
  button.finished { color: var(--purple); }
  button.disabled { color: var(--text-dim); opacity: 0.5; }
  button.entry { border-color: var(--accent); color: var(--accent); font-weight: 600; }
  .sw-active { color: var(--green); }
  .sw-idle { color: var(--yellow); }
  .sw-offline { color: var(--red); }
  .empty { color: var(--text-dim); padding: 12px 14px; }
</style>
</head>
<body>
<header>
  <h1>&#9875; <span id="subsystem">helmpanel</span></h1>
  <div class="meta">updated <span id="updated">never</span> &middot; ack <span id="ack">none</span></div>
</header>
<div class="panel-bar" id="panel-bar"></div>
<div id="workers"><div class="empty">Waiting for status...</div></div>

<script>
let controls = [];

function esc(s) {
  if (!s) return '';
  const d = document.createElement('div');
  d.textContent = s;
  return d.innerHTML;
}

function escAttr(s) {
  if (!s) return '';
  return s.replace(/&/g,'&amp;').replace(/"/g,'&quot;').replace(/</g,'&lt;').replace(/>/g,'&gt;');
}

function button(id, label, cls) {
  return '<button class="' + cls + '" data-control="' + escAttr(id) + '">' + esc(label) + '</button>';
}

function modeClass(m) {
  if (m.entry) return 'entry';
  if (m.completed && m.disabled) return 'disabled';
  return m.state;
}

function renderPanel(data) {
  const p = data.board.panel;
  let html = '';
  html += '<span class="meta">modes ' + (p.lock_open ? 'unlocked' : 'locked') + '</span>';
  html += '<span class="meta">manual ' + (p.manual_control ? 'on' : 'off') + '</span>';
  const live = controls.find(c => c.endsWith('/action/live-update'));
  if (live) {
    html += button(live, 'live update' + (p.pulses ? ' #' + p.pulses : ''), p.live_update ? 'on' : (p.live_update_enabled ? '' : 'disabled'));
  }
  document.getElementById('panel-bar').innerHTML = html;
}

function renderWorkers(data) {
  const workers = data.board.workers || [];
  if (workers.length === 0) {
    document.getElementById('workers').innerHTML = '<div class="empty">Waiting for status...</div>';
    return;
  }
  let html = '';
  for (const w of workers) {
    html += '<div class="card"><div class="card-header">' + esc(w.name);
    if (!w.ready) html += ' <span>(not ready)</span>';
    if (w.stop_lit) html += '<span class="stop">&#9632; all stop</span>';
    html += '</div><div class="card-body"><div class="row">';
    for (const m of w.modes) {
      html += button(w.name + '/mode/' + m.name, m.name, modeClass(m));
    }
    html += '</div><div class="row">';
    for (const s of (w.subworkers || [])) {
      const id = controls.find(c => c === w.name + '/device/' + s.name || c === w.name + '/subworker/' + s.name);
      if (id) html += button(id, s.name, 'sw-' + s.state);
    }
    html += '</div><div class="row">';
    for (const c of controls.filter(c => c.startsWith(w.name + '/action/'))) {
      const label = c.split('/').pop();
      let cls = '';
      if (label === 'unlock-modes' && data.board.panel.lock_open) cls = 'on';
      if (label === 'manual-control' && data.board.panel.manual_control) cls = 'on';
      html += button(c, label, cls);
    }
    html += '</div></div></div>';
  }
  document.getElementById('workers').innerHTML = html;
}

async function fetchControls() {
  const resp = await fetch('/api/controls');
  if (resp.ok) controls = (await resp.json()).controls || [];
}

async function fetchView() {
  try {
    const resp = await fetch('/api/view');
    if (!resp.ok) return;
    const data = await resp.json();
    document.getElementById('subsystem').textContent = data.subsystem;
    document.getElementById('updated').textContent = new Date().toLocaleTimeString();
    document.getElementById('ack').textContent = data.board.panel.last_ack ? data.board.panel.last_ack + ' ' + data.last_ack_age : 'none';
    renderPanel(data);
    renderWorkers(data);
  } catch (e) {
    document.getElementById('updated').textContent = 'error';
  }
}

document.addEventListener('click', async function(e) {
  const el = e.target.closest('[data-control]');
  if (!el) return;
  await fetch('/api/click', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify({ target: el.dataset.control }),
  });
  fetchView();
});

fetchControls().then(fetchView);
setInterval(fetchView, 1000);
setInterval(fetchControls, 10000);
</script>
</body>
</html>
`
