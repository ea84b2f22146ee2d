package http

import nethttp "net/http"

func dashboardHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Media Monitoring UI</title>
  <style>
    @import url("https://fonts.googleapis.com/css?family=Open+Sans:300,400,600,700");

    :root {
      --mm-blue: #0e5d8f;
      --mm-blue-2: #0971b2;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --line-soft: #eee;
      --head: #f0f0f0;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
      --warn-bg: #fcf8e3;
      --warn-text: #8a6d3b;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Open Sans", "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.42857143;
    }

    a { color: #428bca; text-decoration: none; }
    a:hover { color: #2a6496; text-decoration: underline; }

    header {
      background: linear-gradient(to right, var(--mm-blue) 0, var(--mm-blue-2) 100%);
      border-bottom: 1px solid #0b4e79;
      box-shadow: 0 2px 5px rgba(0, 0, 0, 0.15);
    }

    .container {
      margin-right: auto;
      margin-left: auto;
      padding-left: 15px;
      padding-right: 15px;
      width: 100%;
      max-width: 1180px;
    }

    .header-inner {
      min-height: 70px;
      display: flex;
      align-items: center;
      justify-content: space-between;
      gap: 12px;
    }

    .brand { color: #fff; font-size: 20px; font-weight: 600; }
    .brand small { display: block; font-size: 12px; font-weight: 300; color: #d7e9f5; }

    .muted { color: var(--muted); }

    main { padding: 22px 0 40px; }

    section.card {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 4px;
      margin-bottom: 22px;
      box-shadow: 0 1px 1px rgba(0, 0, 0, 0.05);
    }
    section.card > h2 {
      margin: 0;
      padding: 10px 15px;
      font-size: 16px;
      font-weight: 600;
      border-bottom: 1px solid var(--line-soft);
      background: var(--head);
      border-radius: 4px 4px 0 0;
    }
    .card-body { padding: 15px; }

    form .row { display: flex; flex-wrap: wrap; gap: 14px; }
    .field { display: flex; flex-direction: column; gap: 4px; min-width: 220px; flex: 1; }
    .field label { font-weight: 600; font-size: 13px; }
    .field input, .field textarea {
      border: 1px solid #ccc;
      border-radius: 4px;
      padding: 6px 10px;
      font-size: 14px;
      font-family: inherit;
    }
    .field input:focus, .field textarea:focus {
      outline: none;
      border-color: #66afe9;
      box-shadow: 0 0 6px rgba(102, 175, 233, 0.5);
    }
    .field.invalid input { border-color: var(--bad-text); }
    .field-error { color: var(--bad-text); font-size: 12px; min-height: 15px; }

    button {
      background: var(--mm-blue);
      border: 1px solid #0b4e79;
      color: #fff;
      padding: 7px 16px;
      border-radius: 4px;
      font-size: 14px;
      cursor: pointer;
    }
    button:hover:not(:disabled) { background: var(--mm-blue-2); }
    button:disabled { background: #9bb8cb; border-color: #9bb8cb; cursor: not-allowed; }
    button.danger { background: #c9302c; border-color: #ac2925; }
    button.danger:hover { background: #d9534f; }

    .banner {
      display: none;
      margin: 0 0 15px;
      padding: 10px 15px;
      border-radius: 4px;
      border: 1px solid transparent;
    }
    .banner.ok { display: block; background: var(--ok-bg); color: var(--ok-text); border-color: #d6e9c6; }
    .banner.bad { display: block; background: var(--bad-bg); color: var(--bad-text); border-color: #ebccd1; }

    table { width: 100%; border-collapse: collapse; }
    th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid var(--line-soft); vertical-align: top; }
    th { background: var(--head); font-weight: 600; font-size: 13px; }
    tr:hover td { background: #f5fafd; }
    td.nowrap { white-space: nowrap; }

    .empty { padding: 18px 10px; color: var(--muted); text-align: center; }
    .fetch-error { padding: 8px 10px; color: var(--bad-text); font-size: 13px; }

    .manual-item {
      border: 1px solid var(--line);
      border-radius: 4px;
      padding: 12px;
      margin-bottom: 14px;
      background: #fcfcfc;
    }
    .manual-head { display: flex; justify-content: space-between; align-items: baseline; gap: 10px; flex-wrap: wrap; }
    .manual-head .url { font-weight: 600; word-break: break-all; }
    .manual-meta { font-size: 12px; color: var(--muted); }
    .manual-item textarea { width: 100%; min-height: 110px; margin-top: 8px; resize: vertical; }
    .manual-foot { display: flex; justify-content: space-between; align-items: center; margin-top: 6px; gap: 10px; }
    .counter { font-size: 12px; color: var(--muted); }

    .badge {
      display: inline-block;
      padding: 2px 9px;
      border-radius: 10px;
      font-size: 12px;
      font-weight: 600;
    }
    .badge.ready { background: var(--ok-bg); color: var(--ok-text); }
    .badge.needs { background: var(--warn-bg); color: var(--warn-text); }

    .actions { display: flex; align-items: center; gap: 12px; flex-wrap: wrap; margin-top: 12px; }

    footer { padding: 14px 0 30px; color: var(--muted); font-size: 12px; }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div class="brand">Media Monitoring<small>article intake and report dashboard</small></div>
      <div id="status-pill" class="muted" style="color:#d7e9f5"></div>
    </div>
  </header>

  <main class="container">
    <div id="banner" class="banner"></div>

    <section class="card">
      <h2>Submit Article</h2>
      <div class="card-body">
        <form id="submit-form" novalidate>
          <div class="row">
            <div class="field" id="field-url">
              <label for="submit-url">Article URL</label>
              <input id="submit-url" type="url" placeholder="https://..." />
              <div class="field-error" id="error-url"></div>
            </div>
            <div class="field" id="field-name">
              <label for="submit-name">Your name</label>
              <input id="submit-name" type="text" placeholder="Jane Doe" />
              <div class="field-error" id="error-submitted_by"></div>
            </div>
          </div>
          <div class="actions">
            <button type="submit" id="submit-button">Submit Article</button>
          </div>
        </form>
      </div>
    </section>

    <section class="card">
      <h2>Pending Articles</h2>
      <div class="card-body">
        <div id="pending-error" class="fetch-error" style="display:none"></div>
        <table>
          <thead>
            <tr><th>URL</th><th>Submitted by</th><th class="nowrap">Submitted</th></tr>
          </thead>
          <tbody id="pending-body"></tbody>
        </table>
        <div id="pending-empty" class="empty" style="display:none"></div>
      </div>
    </section>

    <section class="card">
      <h2>Manual Articles</h2>
      <div class="card-body">
        <div id="manual-error" class="fetch-error" style="display:none"></div>
        <div id="manual-list"></div>
        <div id="manual-empty" class="empty" style="display:none"></div>
        <div class="actions">
          <div class="field" style="flex:0 1 320px">
            <label for="batch-email">Recipient email</label>
            <input id="batch-email" type="email" placeholder="reports@example.com" />
            <div class="field-error" id="error-batch-email"></div>
          </div>
          <button id="process-batch" disabled>Process Manual Articles</button>
        </div>
      </div>
    </section>

    <section class="card">
      <h2>Reports</h2>
      <div class="card-body">
        <div class="field">
          <label for="report-content">Pasted content for media report (optional)</label>
          <textarea id="report-content" rows="5" placeholder="Paste article text here..."></textarea>
        </div>
        <div class="actions">
          <div class="field" style="flex:0 1 320px">
            <label for="report-email">Recipient email</label>
            <input id="report-email" type="email" placeholder="reports@example.com" />
            <div class="field-error" id="error-report-email"></div>
          </div>
          <button id="run-media-report">Generate Media Report</button>
          <button id="run-hansard-report">Generate Hansard Report</button>
        </div>
      </div>
    </section>
  </main>

  <footer class="container">
    Lists refresh automatically while this page is visible.
  </footer>

  <script>
    const q = (sel) => document.querySelector(sel);

    let bannerTimer = null;
    function showBanner(kind, message) {
      const el = q('#banner');
      el.className = 'banner ' + kind;
      el.textContent = message;
      if (bannerTimer) clearTimeout(bannerTimer);
      bannerTimer = setTimeout(() => { el.className = 'banner'; }, 5000);
    }

    function clearFieldErrors(ids) {
      ids.forEach((id) => {
        const el = q('#error-' + id);
        if (el) el.textContent = '';
        const field = q('#field-' + id);
        if (field) field.classList.remove('invalid');
      });
    }

    async function api(method, path, body) {
      let res;
      try {
        res = await fetch(path, {
          method,
          headers: body !== undefined ? { 'Content-Type': 'application/json' } : {},
          body: body !== undefined ? JSON.stringify(body) : undefined,
        });
      } catch (err) {
        return { status: 0, body: { success: false, message: 'Network error. Please check your connection and try again.' } };
      }
      if (res.status === 204) return { status: 204, body: {} };
      let parsed = {};
      try { parsed = await res.json(); } catch (err) { /* ignore */ }
      return { status: res.status, body: parsed };
    }

    // Pending articles.
    async function loadPending() {
      const { status, body } = await api('GET', '/api/v1/articles/pending');
      if (status !== 200) return;
      const meta = body.meta || {};
      const rows = body.data || [];

      const errEl = q('#pending-error');
      if (meta.error) {
        errEl.textContent = 'Refresh failed, showing the last loaded list.';
        errEl.style.display = 'block';
      } else {
        errEl.style.display = 'none';
      }

      const tbody = q('#pending-body');
      tbody.innerHTML = rows.map((r) =>
        '<tr><td><a href="' + encodeURI(r.url) + '" target="_blank" rel="noopener">' + r.display_url + '</a></td>' +
        '<td>' + r.submitted_by + '</td>' +
        '<td class="nowrap">' + r.submitted_ago + '</td></tr>'
      ).join('');

      const empty = q('#pending-empty');
      empty.textContent = meta.empty_message || 'No pending articles';
      empty.style.display = rows.length === 0 ? 'block' : 'none';
    }

    // Manual articles. Textarea content is set via property assignment, never
    // markup, so raw article text cannot inject into the page.
    async function loadManual() {
      const { status, body } = await api('GET', '/api/v1/manual-articles');
      if (status !== 200) return;
      const meta = body.meta || {};
      const rows = body.data || [];

      const errEl = q('#manual-error');
      if (meta.error) {
        errEl.textContent = 'Refresh failed, showing the last loaded list.';
        errEl.style.display = 'block';
      } else {
        errEl.style.display = 'none';
      }

      const active = document.activeElement;
      const editingID = active && active.classList && active.classList.contains('manual-content')
        ? active.getAttribute('data-id') : null;

      const list = q('#manual-list');
      list.innerHTML = '';
      rows.forEach((r) => {
        if (String(r.id) === editingID) {
          // Keep the block being edited; rebuilding it would drop focus
          // and unsaved keystrokes.
          list.appendChild(active.closest('.manual-item'));
          return;
        }
        const item = document.createElement('div');
        item.className = 'manual-item';
        item.innerHTML =
          '<div class="manual-head">' +
            '<span class="url"><a href="' + encodeURI(r.url) + '" target="_blank" rel="noopener">' + r.display_url + '</a></span>' +
            '<span class="badge ' + (r.has_content ? 'ready' : 'needs') + '">' + r.badge + '</span>' +
          '</div>' +
          '<div class="manual-meta">Submitted by ' + r.submitted_by + ' · ' + r.submitted_ago + '</div>' +
          '<textarea class="manual-content" data-id="' + r.id + '" placeholder="Paste the article text here..."></textarea>' +
          '<div class="manual-foot">' +
            '<span class="counter" data-counter="' + r.id + '">' + r.counter + '</span>' +
            '<button class="danger" data-remove="' + r.id + '">Remove</button>' +
          '</div>';
        item.querySelector('textarea').value = r.content || '';
        list.appendChild(item);
      });

      const empty = q('#manual-empty');
      empty.textContent = meta.empty_message || 'No articles waiting for manual input';
      empty.style.display = rows.length === 0 ? 'block' : 'none';

      const pb = body.process_button || {};
      const btn = q('#process-batch');
      btn.textContent = pb.label || 'Process Manual Articles';
      btn.disabled = !pb.enabled;
    }

    function load() {
      loadPending();
      loadManual();
    }

    // Submit form.
    q('#submit-form').addEventListener('submit', async (ev) => {
      ev.preventDefault();
      clearFieldErrors(['url', 'submitted_by']);
      const btn = q('#submit-button');
      btn.disabled = true;

      const { status, body } = await api('POST', '/api/v1/articles/submit', {
        url: q('#submit-url').value,
        submitted_by: q('#submit-name').value,
      });
      btn.disabled = false;

      if (status === 400 && body.field_errors) {
        Object.entries(body.field_errors).forEach(([field, message]) => {
          const el = q('#error-' + field);
          if (el) el.textContent = message;
        });
        if (body.field_errors.url) q('#field-url').classList.add('invalid');
        if (body.field_errors.submitted_by) q('#field-name').classList.add('invalid');
        return;
      }
      if (status !== 200 || !body.success) {
        showBanner('bad', body.message || 'The server could not complete the request. Please try again.');
        return;
      }
      showBanner('ok', body.message || 'Article submitted.');
      q('#submit-form').reset();
      setTimeout(loadPending, 700);
    });

    // Inline errors clear as soon as the user edits the field again.
    q('#submit-url').addEventListener('input', () => clearFieldErrors(['url']));
    q('#submit-name').addEventListener('input', () => {
      clearFieldErrors(['submitted_by']);
      q('#field-name').classList.remove('invalid');
    });
    q('#batch-email').addEventListener('input', () => clearFieldErrors(['batch-email']));
    q('#report-email').addEventListener('input', () => clearFieldErrors(['report-email']));

    // Autosave on blur. Failures are intentionally quiet: the server journals
    // every attempt and the next blur retries.
    q('#manual-list').addEventListener('blur', async (ev) => {
      const target = ev.target;
      if (!(target instanceof Element) || !target.classList.contains('manual-content')) return;
      const id = target.getAttribute('data-id');
      await api('POST', '/api/v1/manual-articles/' + id + '/content', {
        article_content: target.value,
      });
      loadManual();
    }, true);

    q('#manual-list').addEventListener('input', (ev) => {
      const target = ev.target;
      if (!(target instanceof Element) || !target.classList.contains('manual-content')) return;
      const id = target.getAttribute('data-id');
      const counter = document.querySelector('[data-counter="' + id + '"]');
      if (counter) counter.textContent = target.value.length.toLocaleString('en-US') + ' / 100,000 characters';
    });

    q('#manual-list').addEventListener('click', async (ev) => {
      const target = ev.target;
      if (!(target instanceof Element)) return;
      const id = target.getAttribute('data-remove');
      if (!id) return;
      if (!confirm('Remove this article from the manual queue?')) return;

      const { status, body } = await api('DELETE', '/api/v1/manual-articles/' + id);
      if (status !== 200 || !body.success) {
        showBanner('bad', body.message || 'The server could not complete the request. Please try again.');
        return;
      }
      showBanner('ok', body.message || 'Article removed.');
      loadManual();
    });

    // Batch processing.
    q('#process-batch').addEventListener('click', async () => {
      clearFieldErrors(['batch-email']);
      const btn = q('#process-batch');
      btn.disabled = true;

      const { status, body } = await api('POST', '/api/v1/manual-articles/process-batch', {
        recipient_email: q('#batch-email').value,
      });
      btn.disabled = false;

      if (status === 400 && body.field_errors) {
        q('#error-batch-email').textContent = body.field_errors.recipient_email || '';
        return;
      }
      showBanner(body.success ? 'ok' : 'bad', body.message || 'Batch processing finished.');
      setTimeout(loadManual, 1200);
    });

    // Reports.
    async function runReport(path, payload, btn) {
      clearFieldErrors(['report-email']);
      btn.disabled = true;
      const { status, body } = await api('POST', path, payload);
      btn.disabled = false;

      if (status === 400 && body.field_errors) {
        q('#error-report-email').textContent = body.field_errors.recipient_email || '';
        return;
      }
      showBanner(body.success ? 'ok' : 'bad', body.message || 'Report request finished.');
    }

    q('#run-media-report').addEventListener('click', (ev) => runReport('/api/v1/reports/media', {
      pasted_content: q('#report-content').value,
      recipient_email: q('#report-email').value,
    }, ev.target));
    q('#run-hansard-report').addEventListener('click', (ev) => runReport('/api/v1/reports/hansard', {
      recipient_email: q('#report-email').value,
    }, ev.target));

    // Visibility drives the server-side refresh timer.
    document.addEventListener('visibilitychange', () => {
      api('POST', '/api/v1/visibility', { visible: !document.hidden });
      if (!document.hidden) load();
    });

    load();
    setInterval(() => { if (!document.hidden) load(); }, 30000);
  </script>
</body>
</html>`
