package http

import "net/http"

// handleIndex serves the chat widget.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Starbot</title>
    <style>
        body { font-family: system-ui, sans-serif; background: #f4f6fb; margin: 0; }
        .container { max-width: 720px; margin: 0 auto; padding: 24px; }
        #messages { background: #fff; border-radius: 8px; padding: 16px; min-height: 360px; max-height: 60vh; overflow-y: auto; }
        .message { margin: 8px 0; padding: 10px 14px; border-radius: 8px; white-space: pre-wrap; }
        .user { background: #1f4e9c; color: #fff; margin-left: 20%; }
        .assistant { background: #eef1f7; margin-right: 20%; }
        .sources { font-size: 12px; color: #555; margin-top: 6px; }
        .feedback button { font-size: 12px; margin-right: 4px; }
        form { display: flex; gap: 8px; margin-top: 12px; }
        input { flex: 1; padding: 10px; border-radius: 6px; border: 1px solid #ccd; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Starbot</h1>
            <p>Ask about admissions, fees, facilities, activities and more.</p>
        </header>
        <div id="messages"></div>
        <form id="chat-form">
            <input type="text" id="question" placeholder="Ask a question..." autocomplete="off">
            <button type="submit">Send</button>
        </form>
    </div>
    <script>
        const history = [];
        const messages = document.getElementById('messages');

        function add(cls, text) {
            const el = document.createElement('div');
            el.className = 'message ' + cls;
            el.textContent = text;
            messages.appendChild(el);
            messages.scrollTop = messages.scrollHeight;
            return el;
        }

        function feedback(question, resp, verdict) {
            fetch('/api/feedback', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({question: question, answer: resp.answer, feedback: verdict, sources: resp.sources})
            });
        }

        document.getElementById('chat-form').addEventListener('submit', async (e) => {
            e.preventDefault();
            const input = document.getElementById('question');
            const question = input.value.trim();
            input.value = '';
            add('user', question);

            const res = await fetch('/api/chat', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({question: question, history: history})
            });
            const resp = await res.json();
            const el = add('assistant', resp.answer);

            if (resp.sources && resp.sources.length) {
                const src = document.createElement('div');
                src.className = 'sources';
                src.textContent = 'Sources: ' + resp.sources.map(s => s.metadata.source).join('; ');
                el.appendChild(src);
            }
            if (resp.metadata.outcome === 'answered') {
                const fb = document.createElement('div');
                fb.className = 'feedback';
                for (const verdict of ['helpful', 'not-helpful']) {
                    const b = document.createElement('button');
                    b.textContent = verdict;
                    b.onclick = () => { feedback(question, resp, verdict); fb.remove(); };
                    fb.appendChild(b);
                }
                el.appendChild(fb);
            }

            history.push({role: 'user', content: question}, {role: 'assistant', content: resp.answer});
        });
    </script>
</body>
</html>`
